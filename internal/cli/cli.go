package cli

import (
	"github.com/integrii/flaggy"
	"go.uber.org/zap"
)

const DefaultConfigFile = "/etc/chroot-teardown.conf"

type Command interface {
	Flaggy() *flaggy.Subcommand
	Run(log *zap.Logger, opts *GlobalOptions) error
}

type GlobalOptions struct {
	Verbose    bool
	ConfigFile string
}

func NewGlobalOptions() *GlobalOptions {
	return &GlobalOptions{
		ConfigFile: DefaultConfigFile,
	}
}
