package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sgtransit/stops-cli/internal/pipeline"
)

// printResults writes one line per completed stage.
func printResults(out io.Writer, results ...*pipeline.StageResult) error {
	if len(results) == 0 {
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STAGE\tFETCHED\tROWS\tDURATION\tFILES")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n",
			r.Stage, r.Fetched, r.Rows, r.Duration.Round(time.Millisecond), strings.Join(r.Files, ", "))
	}
	return w.Flush()
}
