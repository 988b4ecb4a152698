package reporter

import (
	"io"
	"path/filepath"

	"github.com/owenrumney/go-sarif/v3/pkg/report"
	"github.com/owenrumney/go-sarif/v3/pkg/report/v210/sarif"

	"github.com/tinovyatkin/twlint/internal/lint"
)

const (
	toolName = "twlint"
	toolURI  = "https://github.com/tinovyatkin/twlint"

	// defaultRuleID is used for diagnostics without a code.
	defaultRuleID = "tailwindcss"
)

// PrintSARIF writes a SARIF 2.1.0 log with one result per diagnostic.
func PrintSARIF(w io.Writer, summary lint.Summary, opts Options) error {
	rep := report.NewV210Report()
	run := sarif.NewRunWithInformationURI(toolName, toolURI)

	rules := make(map[string]bool)
	for _, f := range summary.Files {
		uri := filepath.ToSlash(opts.displayPath(f.Path))
		for _, d := range f.Diagnostics {
			ruleID := d.Code
			if ruleID == "" {
				ruleID = defaultRuleID
			}
			if !rules[ruleID] {
				rules[ruleID] = true
				run.AddRule(ruleID).WithDescription(ruleDescription(ruleID))
			}

			region := sarif.NewSimpleRegion(d.Range.Start.Line+1, d.Range.End.Line+1).
				WithStartColumn(d.Range.Start.Character + 1).
				WithEndColumn(d.Range.End.Character + 1)

			run.CreateResultForRule(ruleID).
				WithLevel(sarifLevel(d.Severity)).
				WithMessage(sarif.NewTextMessage(d.Message)).
				AddLocation(sarif.NewLocationWithPhysicalLocation(
					sarif.NewPhysicalLocation().
						WithArtifactLocation(sarif.NewSimpleArtifactLocation(uri)).
						WithRegion(region),
				))
		}
	}

	rep.AddRun(run)
	return rep.PrettyWrite(w)
}

func sarifLevel(s lint.Severity) string {
	if s == lint.SeverityError {
		return "error"
	}
	return "warning"
}

func ruleDescription(id string) string {
	if id == defaultRuleID {
		return "Tailwind CSS language server diagnostic"
	}
	return "Tailwind CSS " + id
}
