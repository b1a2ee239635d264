package occupancy

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/prometheus/procfs"
	"go.uber.org/zap"
)

// ProcTable reads processes from a procfs mount.
type ProcTable struct {
	fs     procfs.FS
	logger *zap.Logger
}

var _ ProcessTable = &ProcTable{}

func NewProcTable(mountPoint string, logger *zap.Logger) (*ProcTable, error) {
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, errors.Wrapf(err, "opening procfs at %s", mountPoint)
	}
	return &ProcTable{fs: fs, logger: logger}, nil
}

// Processes skips processes whose root can't be read: they are usually gone
// by the time we get to them.
func (t *ProcTable) Processes() ([]Process, error) {
	procs, err := t.fs.AllProcs()
	if err != nil {
		return nil, errors.Wrap(err, "reading process list")
	}

	out := make([]Process, 0, len(procs))
	for _, p := range procs {
		root, err := p.RootDir()
		if err != nil || root == "" {
			t.logger.Debug("Skipping process with unreadable root", zap.Int("pid", p.PID), zap.Error(err))
			continue
		}

		proc := Process{
			PID:  p.PID,
			PPID: UnknownPID,
			Root: filepath.Clean(root),
		}
		if stat, err := p.Stat(); err == nil {
			proc.PPID = stat.PPID
			proc.Comm = stat.Comm
		}
		if env, err := p.Environ(); err == nil {
			proc.Env = env
		}
		out = append(out, proc)
	}
	return out, nil
}
