package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/aws/chroot-teardown/internal/occupancy"
)

// Choice is the answer to the escalation prompt.
type Choice int

const (
	// ChoiceNothing leaves the occupants alone for this round.
	ChoiceNothing Choice = iota
	// ChoiceAbort gives up on the chroot.
	ChoiceAbort
	ChoiceTerminate
	ChoiceKill
)

func (c Choice) String() string {
	switch c {
	case ChoiceAbort:
		return "abort"
	case ChoiceTerminate:
		return "terminate"
	case ChoiceKill:
		return "kill"
	default:
		return "nothing"
	}
}

// ParseChoice maps a response to a Choice by its first letter. Empty or
// unrecognized input is ChoiceNothing.
func ParseChoice(response string) Choice {
	response = strings.ToLower(strings.TrimSpace(response))
	if response == "" {
		return ChoiceNothing
	}
	switch response[0] {
	case 'a':
		return ChoiceAbort
	case 't':
		return ChoiceTerminate
	case 'k':
		return ChoiceKill
	default:
		return ChoiceNothing
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Terminal asks on out and reads one line per question from in.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
	// pending is a read left unanswered by a cancelled Choose.
	pending chan answer
}

type answer struct {
	line string
	err  error
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Choose lists the processes blocking the unmount and reads the answer.
// io.EOF is returned once input is exhausted, ctx.Err() once ctx is done.
func (t *Terminal) Choose(ctx context.Context, chroot string, occupants []occupancy.Process) (Choice, error) {
	fmt.Fprintf(t.out, "Failed to unmount %s. Processes still running inside:\n", chroot)
	if len(occupants) == 0 {
		fmt.Fprintln(t.out, "  (none found)")
	}
	for _, p := range occupants {
		fmt.Fprintf(t.out, "  %7d %s\n", p.PID, p.Comm)
	}
	fmt.Fprint(t.out, "Abort, Kill, Terminate, or do Nothing? [a/k/t/N] ")

	var a answer
	select {
	case <-ctx.Done():
		fmt.Fprintln(t.out)
		return ChoiceAbort, ctx.Err()
	case a = <-t.readLine():
		t.pending = nil
	}
	if a.err != nil && (a.err != io.EOF || a.line == "") {
		fmt.Fprintln(t.out)
		return ChoiceAbort, a.err
	}
	return ParseChoice(a.line), nil
}

func (t *Terminal) readLine() <-chan answer {
	if t.pending == nil {
		ch := make(chan answer, 1)
		go func() {
			line, err := t.in.ReadString('\n')
			ch <- answer{line: line, err: err}
		}()
		t.pending = ch
	}
	return t.pending
}
