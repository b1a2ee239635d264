package chroot

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// SecureDir is the reserved subdirectory of the chroots directory holding
// encrypted chroots.
const SecureDir = ".secure"

var (
	ErrNotFound    = errors.New("chroot not found")
	ErrInvalidName = errors.New("invalid chroot name")
)

// Chroot is a named chroot resolved to its canonical base path.
type Chroot struct {
	Name string
	// Base is absolute with all symlinks resolved, so it compares equal to
	// process roots and mount points read from /proc.
	Base   string
	Secure bool
}

func ValidateName(name string) error {
	if name == "" || strings.ContainsRune(name, filepath.Separator) || strings.HasPrefix(name, ".") {
		return errors.Wrapf(ErrInvalidName, "%q", name)
	}
	return nil
}

// Resolve finds the named chroot under chrootsDir, trying the plain location
// before the encrypted one.
func Resolve(chrootsDir, name string) (Chroot, error) {
	if err := ValidateName(name); err != nil {
		return Chroot{}, err
	}

	candidates := []Chroot{
		{Name: name, Base: filepath.Join(chrootsDir, name)},
		{Name: name, Base: filepath.Join(chrootsDir, SecureDir, name), Secure: true},
	}
	for _, c := range candidates {
		if !dirExists(c.Base) {
			continue
		}
		base, err := canonical(c.Base)
		if err != nil {
			return Chroot{}, err
		}
		c.Base = base
		return c, nil
	}
	return Chroot{}, errors.Wrapf(ErrNotFound, "%s in %s", name, chrootsDir)
}

func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrapf(err, "making %s absolute", path)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", errors.Wrapf(err, "resolving symlinks in %s", abs)
	}
	return resolved, nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
