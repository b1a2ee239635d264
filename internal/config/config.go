package config

import (
	"fmt"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/go-ini/ini"
	"github.com/pkg/errors"
	"k8s.io/utils/strings/slices"
)

const (
	// Unlimited disables signal escalation: the retry loop waits forever.
	Unlimited = -1

	SignalTerm = "TERM"
	SignalKill = "KILL"

	DefaultChrootsDir = "/var/lib/chroots"
	DefaultTries      = 5
	DefaultInterval   = time.Second
	DefaultCoreMarker = "CHROOT_TEARDOWN_CORE"

	unmountSection = "unmount"
)

// Options drives a teardown run. Zero values mean "not set" so that flag,
// file and built-in values can be layered with Resolve.
type Options struct {
	// ChrootsDir holds one directory per chroot plus the .secure directory.
	ChrootsDir string
	// Tries is the number of failed unmount attempts before escalating.
	Tries    int
	Interval time.Duration
	// Signal is the initial signal sent to occupants, TERM or KILL.
	Signal string
	// Yes answers every prompt and escalates to KILL after the first round.
	Yes bool
	// Lazy detaches mounts that a normal unmount could not release.
	Lazy       bool
	CoreMarker string
}

func Defaults() Options {
	return Options{
		ChrootsDir: DefaultChrootsDir,
		Tries:      DefaultTries,
		Interval:   DefaultInterval,
		Signal:     SignalTerm,
		CoreMarker: DefaultCoreMarker,
	}
}

// Load reads the [unmount] section of an INI file. A missing file yields
// empty options.
func Load(path string) (Options, error) {
	var opts Options
	if path == "" {
		return opts, nil
	}

	cfg, err := ini.LoadSources(ini.LoadOptions{Loose: true, Insensitive: true}, path)
	if err != nil {
		return opts, errors.Wrapf(err, "loading config file %s", path)
	}
	sec := cfg.Section(unmountSection)

	opts.ChrootsDir = sec.Key("chroots").String()
	opts.CoreMarker = sec.Key("core_marker").String()
	if sec.HasKey("signal") {
		opts.Signal = NormalizeSignal(sec.Key("signal").String())
	}
	if sec.HasKey("tries") {
		if opts.Tries, err = sec.Key("tries").Int(); err != nil {
			return opts, errors.Wrapf(err, "parsing tries in %s", path)
		}
	}
	if sec.HasKey("interval") {
		if opts.Interval, err = sec.Key("interval").Duration(); err != nil {
			return opts, errors.Wrapf(err, "parsing interval in %s", path)
		}
	}
	if sec.HasKey("yes") {
		if opts.Yes, err = sec.Key("yes").Bool(); err != nil {
			return opts, errors.Wrapf(err, "parsing yes in %s", path)
		}
	}
	if sec.HasKey("lazy") {
		if opts.Lazy, err = sec.Key("lazy").Bool(); err != nil {
			return opts, errors.Wrapf(err, "parsing lazy in %s", path)
		}
	}
	return opts, nil
}

// Resolve layers flags over the config file over Defaults and validates the
// result.
func Resolve(flags Options, path string) (Options, error) {
	file, err := Load(path)
	if err != nil {
		return Options{}, err
	}

	opts := flags
	if err := mergo.Merge(&opts, file); err != nil {
		return Options{}, errors.Wrap(err, "merging config file options")
	}
	if err := mergo.Merge(&opts, Defaults()); err != nil {
		return Options{}, errors.Wrap(err, "merging default options")
	}
	return opts, opts.Validate()
}

// NormalizeSignal accepts TERM, SIGTERM, term, and so on.
func NormalizeSignal(s string) string {
	return strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "SIG")
}

func (o Options) Validate() error {
	if o.ChrootsDir == "" {
		return fmt.Errorf("chroots directory must not be empty")
	}
	if o.Tries != Unlimited && o.Tries < 1 {
		return fmt.Errorf("invalid tries %d: must be at least 1, or %d for unlimited", o.Tries, Unlimited)
	}
	if o.Interval <= 0 {
		return fmt.Errorf("invalid interval %s: must be positive", o.Interval)
	}
	if !slices.Contains([]string{SignalTerm, SignalKill}, o.Signal) {
		return fmt.Errorf("invalid signal %q: must be %s or %s", o.Signal, SignalTerm, SignalKill)
	}
	if o.CoreMarker == "" || strings.Contains(o.CoreMarker, "=") {
		return fmt.Errorf("invalid core marker %q", o.CoreMarker)
	}
	return nil
}

// Escalates reports whether the retry loop ever signals occupants.
func (o Options) Escalates() bool {
	return o.Tries != Unlimited
}
