package occupants

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/hashicorp/go-multierror"
	"github.com/integrii/flaggy"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/aws/chroot-teardown/internal/chroot"
	"github.com/aws/chroot-teardown/internal/cli"
	"github.com/aws/chroot-teardown/internal/config"
	"github.com/aws/chroot-teardown/internal/occupancy"
)

const procMountPoint = "/proc"

func NewCommand() cli.Command {
	cmd := command{}
	cmd.cmd = flaggy.NewSubcommand("occupants")
	cmd.cmd.String(&cmd.flags.ChrootsDir, "c", "chroots", "Directory holding the chroots. Default: "+config.DefaultChrootsDir)
	cmd.cmd.String(&cmd.flags.CoreMarker, "", "core-marker", "Environment variable marking processes that are not reported. Default: "+config.DefaultCoreMarker)
	cmd.cmd.Description = "List the processes that would be signalled to unmount the named chroots"
	return &cmd
}

type command struct {
	cmd   *flaggy.Subcommand
	flags config.Options
}

func (c *command) Flaggy() *flaggy.Subcommand {
	return c.cmd
}

func (c *command) Run(log *zap.Logger, opts *cli.GlobalOptions) error {
	if err := cli.EnsureRoot(); err != nil {
		return err
	}

	names := flaggy.TrailingArguments
	if len(names) == 0 {
		flaggy.ShowHelpAndExit("at least one chroot name is required")
	}

	resolved, err := config.Resolve(c.flags, opts.ConfigFile)
	if err != nil {
		return err
	}
	procs, err := occupancy.NewProcTable(procMountPoint, log)
	if err != nil {
		return err
	}
	detector := occupancy.NewDetector(procs, resolved.CoreMarker, log)

	return report(os.Stdout, detector, resolved.ChrootsDir, names)
}

type occupantFinder interface {
	FindOccupants(base string) ([]occupancy.Process, error)
}

// report writes one line per occupant of each chroot to w.
func report(w io.Writer, finder occupantFinder, chrootsDir string, names []string) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "CHROOT\tPID\tPPID\tCOMMAND")

	var result *multierror.Error
	for _, name := range names {
		c, err := chroot.Resolve(chrootsDir, name)
		if err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "chroot %s", name))
			continue
		}
		occupants, err := finder.FindOccupants(c.Base)
		if err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "chroot %s", name))
			continue
		}
		for _, p := range occupants {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", c.Name, p.PID, p.PPID, p.Comm)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return result.ErrorOrNil()
}
