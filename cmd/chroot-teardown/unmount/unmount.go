package unmount

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/integrii/flaggy"
	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"github.com/aws/chroot-teardown/internal/cli"
	"github.com/aws/chroot-teardown/internal/config"
	"github.com/aws/chroot-teardown/internal/logger"
	"github.com/aws/chroot-teardown/internal/occupancy"
	"github.com/aws/chroot-teardown/internal/prompt"
	"github.com/aws/chroot-teardown/internal/system"
	"github.com/aws/chroot-teardown/internal/teardown"
)

const procMountPoint = "/proc"

const unmountHelpText = `Examples:
  # Unmount two chroots, asking before signalling anything
  chroot-teardown unmount focal jammy

  # Never prompt: send SIGTERM after 3 failed attempts, SIGKILL after 3 more
  chroot-teardown unmount -y -t 3 focal

  # Keep retrying forever without signalling anyone
  chroot-teardown unmount -t -1 focal`

func NewCommand() cli.Command {
	cmd := command{}
	cmd.cmd = flaggy.NewSubcommand("unmount")
	cmd.cmd.String(&cmd.flags.ChrootsDir, "c", "chroots", "Directory holding the chroots. Default: "+config.DefaultChrootsDir)
	cmd.cmd.Bool(&cmd.kill, "k", "kill", "Send SIGKILL instead of SIGTERM to processes blocking the unmount.")
	cmd.cmd.Int(&cmd.flags.Tries, "t", "tries", "Failed unmount attempts before signalling processes, -1 to retry forever. Default: 5")
	cmd.cmd.Bool(&cmd.flags.Yes, "y", "yes", "Signal processes without asking, escalating to SIGKILL after the first round.")
	cmd.cmd.Duration(&cmd.flags.Interval, "", "interval", "Wait between unmount attempts. Default: 1s")
	cmd.cmd.String(&cmd.flags.CoreMarker, "", "core-marker", "Environment variable marking processes that are never signalled. Default: "+config.DefaultCoreMarker)
	cmd.cmd.Bool(&cmd.flags.Lazy, "", "lazy", "Detach mounts that a normal unmount could not release.")
	cmd.cmd.Description = "Unmount everything mounted inside the named chroots"
	cmd.cmd.AdditionalHelpAppend = unmountHelpText
	return &cmd
}

type command struct {
	cmd   *flaggy.Subcommand
	flags config.Options
	kill  bool
}

func (c *command) Flaggy() *flaggy.Subcommand {
	return c.cmd
}

func (c *command) Run(log *zap.Logger, opts *cli.GlobalOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		// a second signal gets the default behaviour
		stop()
	}()
	ctx = logger.NewContext(ctx, log)

	log.Info("Checking user is root...")
	if err := cli.EnsureRoot(); err != nil {
		return err
	}

	names := flaggy.TrailingArguments
	if len(names) == 0 {
		flaggy.ShowHelpAndExit("at least one chroot name is required")
	}

	if c.kill {
		c.flags.Signal = config.SignalKill
	}
	unmountOpts, err := config.Resolve(c.flags, opts.ConfigFile)
	if err != nil {
		return err
	}
	log.Debug("Resolved options", zap.Any("options", unmountOpts))

	if !unmountOpts.Yes && !prompt.IsTerminal(os.Stdin) {
		log.Warn("Standard input is not a terminal, answers to prompts are read from it as is")
	}

	procs, err := occupancy.NewProcTable(procMountPoint, log)
	if err != nil {
		return err
	}

	orchestrator := &teardown.Orchestrator{
		Options:   unmountOpts,
		Occupants: occupancy.NewDetector(procs, unmountOpts.CoreMarker, log),
		Mounts:    system.NewMountTable(),
		Unmounter: system.NewUnmounter(unmountOpts.Lazy, log),
		Signaler:  system.NewSignaler(),
		Prompter:  prompt.NewTerminal(os.Stdin, os.Stderr),
		Clock:     clock.RealClock{},
	}

	start := time.Now()
	if err := orchestrator.Run(ctx, names); err != nil {
		return err
	}
	log.Info("All chroots unmounted", zap.Duration("took", time.Since(start)))
	return nil
}
