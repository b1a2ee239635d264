package occupancy

import (
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"k8s.io/utils/set"
)

// initPID is the PID orphans are reparented to.
const initPID = 1

// ProcessTable returns a fresh snapshot of every live process.
type ProcessTable interface {
	Processes() ([]Process, error)
}

// Detector finds the processes genuinely running inside a chroot.
type Detector struct {
	table      ProcessTable
	coreMarker string
	logger     *zap.Logger
}

func NewDetector(table ProcessTable, coreMarker string, logger *zap.Logger) *Detector {
	return &Detector{
		table:      table,
		coreMarker: coreMarker,
		logger:     logger,
	}
}

// FindOccupants returns, sorted by PID, the processes whose root is base and
// which were started from outside the chroot by a live parent. Children of
// occupants, orphans and processes carrying the core marker are left out.
func (d *Detector) FindOccupants(base string) ([]Process, error) {
	procs, err := d.table.Processes()
	if err != nil {
		return nil, errors.Wrap(err, "listing processes")
	}

	inside := set.New[int]()
	for _, p := range procs {
		if p.Root == base {
			inside.Insert(p.PID)
		}
	}

	var occupants []Process
	for _, p := range procs {
		if !inside.Has(p.PID) {
			continue
		}
		if reason := d.exclusion(p, inside); reason != "" {
			d.logger.Debug("Ignoring process inside chroot",
				zap.Int("pid", p.PID),
				zap.Int("ppid", p.PPID),
				zap.String("reason", reason))
			continue
		}
		occupants = append(occupants, p)
	}

	sort.Slice(occupants, func(i, j int) bool { return occupants[i].PID < occupants[j].PID })
	return occupants, nil
}

// exclusion returns why p is not an occupant, or "" if it is one.
func (d *Detector) exclusion(p Process, inside set.Set[int]) string {
	switch {
	case p.PPID == UnknownPID:
		return "parent unknown"
	case p.PPID == initPID:
		return "orphaned"
	case inside.Has(p.PPID):
		return "parent inside chroot"
	case p.HasEnv(d.coreMarker):
		return "core process"
	}
	return ""
}
