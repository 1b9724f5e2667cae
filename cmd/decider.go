package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"integrity-monitor/core/report"
	"integrity-monitor/core/utils"
	"integrity-monitor/core/verify"

	"github.com/mattn/go-isatty"
)

// consoleDecider asks the operator whether a changed scan may become the new
// baseline. Without a terminal on stdin it declines.
type consoleDecider struct {
	in          io.Reader
	out         io.Writer
	printer     *report.Printer
	interactive bool
	strict      bool
}

func newConsoleDecider(in io.Reader, out io.Writer, printer *report.Printer, strict bool) *consoleDecider {
	return &consoleDecider{
		in:          in,
		out:         out,
		printer:     printer,
		interactive: stdinIsTerminal(),
		strict:      strict,
	}
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

type answer struct {
	line string
	err  error
}

func (d *consoleDecider) Confirm(ctx context.Context, tally verify.Tally) (bool, error) {
	d.printer.Modifications(tally.Changes(d.strict))
	if !d.interactive {
		d.printer.Infof("Standard input is not a terminal. Use --override to accept changes.")
		return false, nil
	}

	fmt.Fprint(d.out, d.printer.Prompt())

	// Read in the background so an interrupt is not stuck behind the prompt.
	ch := make(chan answer, 1)
	go func() {
		line, err := bufio.NewReader(d.in).ReadString('\n')
		ch <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(d.out)
		return false, ctx.Err()
	case a := <-ch:
		if a.err != nil && a.err != io.EOF {
			return false, fmt.Errorf("failed to read answer: %w", a.err)
		}
		return utils.IsAffirmative(a.line), nil
	}
}
