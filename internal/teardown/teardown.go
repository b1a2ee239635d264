package teardown

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
	"k8s.io/utils/clock"

	"github.com/aws/chroot-teardown/internal/chroot"
	"github.com/aws/chroot-teardown/internal/config"
	"github.com/aws/chroot-teardown/internal/logger"
	"github.com/aws/chroot-teardown/internal/occupancy"
	"github.com/aws/chroot-teardown/internal/prompt"
)

var (
	ErrInUse   = errors.New("chroot is in use by another instance")
	ErrAborted = errors.New("unmount aborted")
)

type OccupantFinder interface {
	FindOccupants(base string) ([]occupancy.Process, error)
}

type MountTable interface {
	MountsUnder(base string) ([]string, error)
}

type Unmounter interface {
	UnmountAll(mountPoints []string) error
}

type Signaler interface {
	Signal(pid int, sig unix.Signal) error
}

type Prompter interface {
	Choose(ctx context.Context, chroot string, occupants []occupancy.Process) (prompt.Choice, error)
}

// Orchestrator unmounts chroots one after the other, signalling the
// processes that keep them busy.
type Orchestrator struct {
	Options   config.Options
	Occupants OccupantFinder
	Mounts    MountTable
	Unmounter Unmounter
	Signaler  Signaler
	// Prompter is only consulted when Options.Yes is false.
	Prompter Prompter
	Clock    clock.Clock
	// Logger defaults to the logger carried by the context.
	Logger *zap.Logger
}

// Run unmounts every named chroot. A failure on one chroot does not stop the
// others; all failures are returned together.
func (o *Orchestrator) Run(ctx context.Context, names []string) error {
	var result *multierror.Error
	for _, name := range names {
		if err := o.Unmount(ctx, name); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "chroot %s", name))
			if ctx.Err() != nil {
				break
			}
		}
	}
	return result.ErrorOrNil()
}

// Unmount unmounts everything below one chroot.
func (o *Orchestrator) Unmount(ctx context.Context, name string) error {
	log := o.logger(ctx).With(zap.String("chroot", name))

	c, err := chroot.Resolve(o.Options.ChrootsDir, name)
	if errors.Is(err, chroot.ErrNotFound) {
		log.Error("Chroot not found", zap.String("chrootsDir", o.Options.ChrootsDir))
		return err
	} else if err != nil {
		log.Error("Cannot resolve chroot", zap.Error(err))
		return err
	}
	log = log.With(zap.String("path", c.Base))
	log.Info("Unmounting chroot...", zap.Bool("secure", c.Secure))

	occupants, err := o.Occupants.FindOccupants(c.Base)
	if err != nil {
		return err
	}
	if len(occupants) > 0 {
		log.Error("Not unmounting, chroot is in use by another instance", zap.Ints("pids", occupancy.PIDs(occupants)))
		return ErrInUse
	}

	state := newEscalation(o.Options)
	for {
		if err := ctx.Err(); err != nil {
			log.Warn("Unmount cancelled", zap.Error(err))
			return err
		}

		mountPoints, err := o.Mounts.MountsUnder(c.Base)
		if err != nil {
			return err
		}
		if len(mountPoints) == 0 {
			break
		}

		if err := o.Unmounter.UnmountAll(mountPoints); err != nil {
			state.attempts++
			log.Debug("Unmount attempt failed", zap.Int("attempt", state.attempts), zap.Error(err))
			if state.due(o.Options) {
				if err := o.escalate(ctx, log, c, state); err != nil {
					return err
				}
			}
		} else {
			remaining, err := o.Mounts.MountsUnder(c.Base)
			if err != nil {
				return err
			}
			if len(remaining) == 0 {
				break
			}
			// stacked mounts, or entries the unmounter reported as already gone
			log.Debug("Mounts still listed after unmounting", zap.Strings("mountPoints", remaining))
		}

		if err := o.wait(ctx); err != nil {
			log.Warn("Unmount cancelled", zap.Error(err))
			return err
		}
	}

	log.Info("Unmounted chroot")
	return nil
}

// escalate asks what to do, when interactive, and signals the occupants.
func (o *Orchestrator) escalate(ctx context.Context, log *zap.Logger, c chroot.Chroot, state *escalation) error {
	if !o.Options.Yes {
		occupants, err := o.Occupants.FindOccupants(c.Base)
		if err != nil {
			return err
		}
		choice, err := o.Prompter.Choose(ctx, c.Name, occupants)
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.Warn("Unmount cancelled", zap.Error(ctxErr))
			return ctxErr
		}
		if err != nil {
			log.Warn("Could not read answer, skipping chroot", zap.Error(err))
			return errors.Wrap(ErrAborted, err.Error())
		}
		switch choice {
		case prompt.ChoiceAbort:
			log.Warn("Skipping chroot")
			return ErrAborted
		case prompt.ChoiceKill:
			state.raise(unix.SIGKILL)
		case prompt.ChoiceTerminate:
			// keep the current signal, it may already be KILL
		default:
			log.Info("No action taken, will ask again after the next failed attempt")
			return nil
		}
	}

	occupants, err := o.Occupants.FindOccupants(c.Base)
	if err != nil {
		return err
	}
	log.Warn("Signalling processes blocking unmount",
		zap.String("signal", unix.SignalName(state.signal)),
		zap.Ints("pids", occupancy.PIDs(occupants)))
	for _, p := range occupants {
		if err := o.Signaler.Signal(p.PID, state.signal); err != nil {
			log.Debug("Failed to signal process", zap.Int("pid", p.PID), zap.Error(err))
		}
	}

	if o.Options.Yes {
		state.raise(unix.SIGKILL)
	}
	state.attempts = 0
	return nil
}

// wait blocks for one retry interval, or until ctx is done.
func (o *Orchestrator) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-o.Clock.After(o.Options.Interval):
		return nil
	}
}

func (o *Orchestrator) logger(ctx context.Context) *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logger.FromContext(ctx)
}
