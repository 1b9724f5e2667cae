// Package report renders run progress and results for the console and
// exports outcomes as JSON or YAML.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"integrity-monitor/core/reconcile"
	"integrity-monitor/core/utils"
	"integrity-monitor/core/verify"

	"github.com/dustin/go-humanize"
)

const (
	pathWidth   = 100
	columnWidth = 40
	mtimeLayout = "2006-01-02 15:04:05"
)

// Options selects what the console report shows.
type Options struct {
	// Verbose also lists files that passed the check.
	Verbose bool
	// Details shows old and new digest, mtime and size for failed files.
	Details bool
	// NoColor disables ANSI styling.
	NoColor bool
	// Quiet suppresses progress lines; findings and the summary still print.
	Quiet bool
}

// Printer writes the console report. It is not safe for concurrent use.
type Printer struct {
	w      io.Writer
	opts   Options
	styles Styles
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer, opts Options) *Printer {
	return &Printer{w: w, opts: opts, styles: GetStyles(opts.NoColor)}
}

// Summary is the data shown at the end of a run.
type Summary struct {
	Tally      verify.Tally
	Discovered int
	Hashed     int
	Skipped    int
	Bytes      int64
	Algorithm  string
	Elapsed    time.Duration
}

// Decision is the data shown once the baseline decision is made.
type Decision struct {
	State    reconcile.State
	Forced   bool
	Changes  int
	Location string
}

func (p *Printer) line(tag, format string, args ...any) {
	fmt.Fprintf(p.w, "  %s %s\n", p.styles.tag(tag), fmt.Sprintf(format, args...))
}

// Phase announces a new stage of the run.
func (p *Printer) Phase(title string) {
	if p.opts.Quiet {
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", p.styles.tag(TagPhase), strings.ToUpper(title))
}

// Infof prints a progress line.
func (p *Printer) Infof(format string, args ...any) {
	if p.opts.Quiet {
		return
	}
	p.line(TagInfo, format, args...)
}

// Roots lists the directories included in the run.
func (p *Printer) Roots(roots []string) {
	for _, r := range roots {
		p.Infof("INCLUDED PATH: %s", p.styles.Path.Render(r))
	}
}

// Findings prints each finding the options ask for.
func (p *Printer) Findings(findings []verify.Finding) {
	for _, f := range findings {
		p.Finding(f)
	}
}

// Finding prints one finding. Unchanged paths only show in verbose mode.
func (p *Printer) Finding(f verify.Finding) {
	path := utils.FixWidth(f.Path, pathWidth)
	switch f.Verdict {
	case verify.Unchanged:
		if p.opts.Verbose {
			p.line(TagSucc, "HASH CHECK FOR: %s", path)
		}
		return
	case verify.Modified:
		p.line(TagFail, "HASH CHECK FOR: %s", path)
	case verify.Added:
		p.line(TagWarn, "NEW FILE:       %s", path)
	case verify.Removed:
		p.line(TagWarn, "MISSING FILE:   %s", path)
	}

	if p.opts.Details {
		p.details(f)
	}
}

func (p *Printer) details(f verify.Finding) {
	var was, is [3]string
	if f.Old != nil {
		was = [3]string{f.Old.Digest, f.Old.ModTime.Format(mtimeLayout), strconv.FormatInt(f.Old.Size, 10)}
	}
	if f.New != nil {
		is = [3]string{f.New.Digest, f.New.ModTime.Format(mtimeLayout), strconv.FormatInt(f.New.Size, 10)}
	}

	width := columnWidth
	for _, s := range append(was[:], is[:]...) {
		width = max(width, len(s))
	}

	fmt.Fprintf(p.w, "\t%s %s\n", p.styles.Label.Render(utils.FixWidth("WAS", width)), p.styles.Label.Render("IS"))
	for i := range was {
		fmt.Fprintf(p.w, "\t%s\n", p.styles.Value.Render(utils.FixWidth(orDash(was[i]), width)+" "+orDash(is[i])))
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Summary prints the run totals.
func (p *Printer) Summary(s Summary) {
	t := s.Tally
	p.line(TagInfo, "FILES PROCESSED: %s  UNCHANGED: %s  MODIFIED: %s  ADDED: %s  REMOVED: %s",
		humanize.Comma(int64(t.FilesProcessed)),
		humanize.Comma(int64(t.FilesUnchanged)),
		humanize.Comma(int64(t.FilesModified)),
		humanize.Comma(int64(t.FilesAdded)),
		humanize.Comma(int64(t.FilesRemoved)),
	)
	p.line(TagInfo, "HASHED %s %s (%s) WITH %s, %s SKIPPED, IN %s",
		humanize.Comma(int64(s.Hashed)),
		utils.Plural(s.Hashed, "FILE", "FILES"),
		humanize.IBytes(uint64(s.Bytes)),
		strings.ToUpper(s.Algorithm),
		humanize.Comma(int64(s.Skipped)),
		s.Elapsed.Round(time.Millisecond),
	)
}

// Modifications announces that changes were found and a decision is needed.
func (p *Printer) Modifications(changes int) {
	p.line(TagWarn, "Modifications detected: %d %s.", changes, utils.Plural(changes, "change", "changes"))
}

// Prompt returns the interactive confirmation question.
func (p *Printer) Prompt() string {
	return "  " + p.styles.tag(TagChce) + " Force update baseline? [y]es | [E]nter to cancel: "
}

// Decision prints the outcome of the baseline decision.
func (p *Printer) Decision(d Decision) {
	switch d.State {
	case reconcile.StateCreated:
		p.line(TagInfo, "Baseline not found. Created new one at %s.", d.Location)
	case reconcile.StateUnchanged:
		p.line(TagSucc, "System uncompromised. No changes detected.")
	case reconcile.StateReplaced:
		if d.Forced {
			p.Modifications(d.Changes)
			p.line(TagInfo, "Force override request detected.")
			p.line(TagFovr, "Overriding baseline with new one.")
			return
		}
		p.line(TagInfo, "Overriding baseline with new one.")
	case reconcile.StateCancelled:
		p.line(TagInfo, "Override canceled. Baseline left untouched.")
	}
}

// Error prints a failure line.
func (p *Printer) Error(err error) {
	p.line(TagFail, "%v", err)
}
