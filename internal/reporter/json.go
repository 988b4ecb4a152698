package reporter

import (
	"encoding/json"
	"io"

	"github.com/tinovyatkin/twlint/internal/lint"
)

// PrintJSON writes the summary as indented JSON.
func PrintJSON(w io.Writer, summary lint.Summary) error {
	if summary.Files == nil {
		summary.Files = []lint.FileResult{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
