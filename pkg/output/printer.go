// Package output renders plans and run reports for the terminal.
// Styling is applied only when stdout is a terminal; piped output is
// plain text.
package output

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/mattn/go-isatty"

	"github.com/dotty-sh/dotty/pkg/executor"
	"github.com/dotty-sh/dotty/pkg/planner"
	"github.com/dotty-sh/dotty/pkg/state"
)

// Printer writes formatted output for the CLI commands
type Printer struct {
	w     io.Writer
	color bool
}

// NewPrinter creates a printer for w. Color is enabled only when w is
// os.Stdout on a terminal and NO_COLOR is unset.
func NewPrinter(w io.Writer) *Printer {
	color := false
	if f, ok := w.(*os.File); ok {
		color = (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) &&
			os.Getenv("NO_COLOR") == ""
	}
	return &Printer{w: w, color: color}
}

func (p *Printer) styled(rendered, plain string) string {
	if p.color {
		return rendered
	}
	return plain
}

func (p *Printer) printf(format string, args ...interface{}) {
	fmt.Fprintf(p.w, format, args...)
}

// Plan prints every chain and its pending actions in execution order
func (p *Printer) Plan(plan *planner.Plan) {
	if plan.Empty() {
		p.printf("Nothing to do.\n")
		p.printFailures(plan.Failures)
		return
	}

	for _, chain := range plan.Chains {
		p.printf("%s\n", p.styled(chainStyle.Render(chain.Name), chain.Name))
		for _, action := range chain.Actions {
			p.printf("  %s %s\n",
				p.styled(pendingIndicator, "○"),
				action.Description())
		}
	}

	p.printNotes(plan.Notes)
	p.printFailures(plan.Failures)
}

// Report prints per-action outcomes grouped by chain, then notes and
// per-rule failures
func (p *Printer) Report(report *executor.Report) {
	lastChain := ""
	for _, res := range report.Results {
		if res.Chain != lastChain {
			p.printf("%s\n", p.styled(chainStyle.Render(res.Chain), res.Chain))
			lastChain = res.Chain
		}
		p.printf("  %s %s\n", p.indicator(res), res.Action.Description())
		if res.Err != nil {
			p.printf("    %s\n", p.styled(errorStyle.Render(res.Err.Error()), res.Err.Error()))
		}
	}

	p.printNotes(report.Notes)
	p.printFailures(report.RuleFailures)

	failed := len(report.Failures()) + len(report.RuleFailures)
	if failed > 0 {
		summary := fmt.Sprintf("%d of %d actions failed", failed,
			len(report.Results)+len(report.RuleFailures))
		p.printf("\n%s %s\n", p.styled(errorIndicator, "✗"), summary)
		return
	}
	p.printf("\n%s %d actions applied\n", p.styled(successIndicator, "✓"), len(report.Results))
}

func (p *Printer) indicator(res executor.ActionResult) string {
	switch {
	case res.Skipped:
		return p.styled(skippedIndicator, "-")
	case res.Success:
		return p.styled(successIndicator, "✓")
	default:
		return p.styled(errorIndicator, "✗")
	}
}

func (p *Printer) printNotes(notes []string) {
	for _, note := range notes {
		p.printf("%s %s\n", p.styled(warningIndicator, "!"), note)
	}
}

func (p *Printer) printFailures(failures []planner.RuleFailure) {
	for _, f := range failures {
		line := fmt.Sprintf("%s: %v", f.Rule, f.Err)
		p.printf("%s %s\n", p.styled(errorIndicator, "✗"), line)
	}
}

// State prints the applied-state ledger: packages per manager, placed
// files, and recorded once-hooks
func (p *Printer) State(applied *state.AppliedState) {
	if len(applied.Packages) == 0 && len(applied.Files) == 0 && len(applied.Hooks) == 0 {
		p.printf("No applied state recorded.\n")
		return
	}

	for _, manager := range sortedKeys(applied.Packages) {
		p.printf("%s\n", p.styled(chainStyle.Render(manager), manager))
		for _, pkg := range applied.Packages[manager] {
			p.printf("  %s\n", pkg)
		}
	}

	if len(applied.Files) > 0 {
		p.printf("%s\n", p.styled(chainStyle.Render("files"), "files"))
		for _, dest := range sortedKeys(applied.Files) {
			p.printf("  %s\n", dest)
		}
	}

	if len(applied.Hooks) > 0 {
		p.printf("%s\n", p.styled(chainStyle.Render("hooks"), "hooks"))
		for _, name := range sortedKeys(applied.Hooks) {
			p.printf("  %s\n", name)
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
