package system

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	mountutils "k8s.io/mount-utils"
)

// Unmounter unmounts a batch of mount points.
type Unmounter struct {
	mounter mountutils.Interface
	// lazy detaches mount points a normal unmount could not release
	lazy   bool
	detach func(mountPoint string) error
	logger *zap.Logger
}

func NewUnmounter(lazy bool, logger *zap.Logger) *Unmounter {
	return &Unmounter{
		mounter: mountutils.New(""),
		lazy:    lazy,
		detach:  platformLazyUnmount,
		logger:  logger,
	}
}

// UnmountAll unmounts mountPoints in the given order, which should be deepest
// first. It keeps going past failures and reports them all at the end; the
// batch only succeeds if every unmount did.
func (u *Unmounter) UnmountAll(mountPoints []string) error {
	var result *multierror.Error
	for _, mountPoint := range mountPoints {
		if err := u.unmount(mountPoint); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "unmounting %s", mountPoint))
		}
	}
	return result.ErrorOrNil()
}

func (u *Unmounter) unmount(mountPoint string) error {
	err := u.mounter.Unmount(mountPoint)
	if err == nil {
		u.logger.Debug("Unmounted", zap.String("path", mountPoint))
		return nil
	}
	if !u.lazy {
		return err
	}

	u.logger.Debug("Normal unmount failed, trying lazy unmount", zap.String("path", mountPoint), zap.Error(err))
	if lazyErr := u.detach(mountPoint); lazyErr != nil {
		return multierror.Append(err, lazyErr)
	}
	u.logger.Debug("Detached", zap.String("path", mountPoint))
	return nil
}
