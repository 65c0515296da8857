package export

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/opslynx/patchlynx/pkg/models"
)

// ConsoleSink renders the record sets and the skip report as aligned tables.
type ConsoleSink struct {
	Out io.Writer
}

func (s *ConsoleSink) Name() string { return "console" }

func (s *ConsoleSink) Export(_ context.Context, run *models.RunResult) ([]string, error) {
	tbls := tables(run)
	if len(tbls) == 0 && len(run.Skipped) == 0 {
		fmt.Fprintln(s.Out, "No records to display.")
		return nil, nil
	}

	for _, tbl := range tbls {
		fmt.Fprintf(s.Out, "\n=== %s (%d) ===\n", tbl.Name, len(tbl.Rows))
		w := tabwriter.NewWriter(s.Out, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, strings.Join(tbl.Headers, "\t"))
		for _, row := range tbl.Rows {
			fmt.Fprintln(w, strings.Join(row, "\t"))
		}
		if err := w.Flush(); err != nil {
			return nil, err
		}
	}

	if len(run.Skipped) > 0 {
		fmt.Fprintf(s.Out, "\n=== Skipped (%d) ===\n", len(run.Skipped))
		w := tabwriter.NewWriter(s.Out, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "Target\tState\tReason")
		for _, sk := range run.Skipped {
			fmt.Fprintf(w, "%s\t%s\t%s\n", sk.Target, sk.State, sk.Reason)
		}
		if err := w.Flush(); err != nil {
			return nil, err
		}
	}

	return nil, nil
}
