package main

import (
	"github.com/integrii/flaggy"
	"go.uber.org/zap"

	"github.com/aws/chroot-teardown/cmd/chroot-teardown/occupants"
	"github.com/aws/chroot-teardown/cmd/chroot-teardown/unmount"
	"github.com/aws/chroot-teardown/internal/cli"
	"github.com/aws/chroot-teardown/internal/logger"
)

var version = "dev"

func main() {
	flaggy.SetName("chroot-teardown")
	flaggy.SetDescription("Unmount chroots, dealing with the processes that keep them busy")
	flaggy.SetVersion(version)
	// chroot names are positional and read from the trailing arguments
	flaggy.DefaultParser.ShowHelpOnUnexpected = false

	opts := cli.NewGlobalOptions()
	flaggy.Bool(&opts.Verbose, "v", "verbose", "Enable debug logging.")
	flaggy.String(&opts.ConfigFile, "", "config", "INI file holding defaults for the [unmount] options. Ignored if missing.")

	cmds := []cli.Command{
		unmount.NewCommand(),
		occupants.NewCommand(),
	}
	for _, cmd := range cmds {
		flaggy.AttachSubcommand(cmd.Flaggy(), 1)
	}
	flaggy.Parse()

	log := logger.NewZapLogger(opts.Verbose)
	defer func() { _ = log.Sync() }()
	logger.RedirectKlog(log)

	for _, cmd := range cmds {
		if cmd.Flaggy().Used {
			if err := cmd.Run(log, opts); err != nil {
				log.Fatal("Command failed", zap.Error(err))
			}
			return
		}
	}
	flaggy.ShowHelpAndExit("No command provided")
}
