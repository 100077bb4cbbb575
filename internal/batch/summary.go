package batch

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Slynchy/webp-conv/internal/domain"
)

// Summarize renders the end-of-batch summary printed after every run.
func Summarize(r *domain.BatchReport) string {
	var b strings.Builder

	converted := r.Succeeded + r.Warned
	elapsed := r.FinishedAt.Sub(r.StartedAt).Round(10 * time.Millisecond)
	if r.DryRun {
		fmt.Fprintf(&b, "dry run: %d of %d files would be converted\n", converted, r.Total())
	} else {
		fmt.Fprintf(&b, "converted %d of %d files in %s\n", converted, r.Total(), elapsed)
	}

	if r.Warned > 0 {
		fmt.Fprintf(&b, "  %d with warnings\n", r.Warned)
	}
	if r.Skipped > 0 {
		fmt.Fprintf(&b, "  %d skipped, destination already present\n", r.Skipped)
	}
	if r.Failed > 0 {
		fmt.Fprintf(&b, "  %d failed:\n", r.Failed)
		for _, o := range r.Outcomes {
			if !o.Failed() {
				continue
			}
			detail := o.Detail
			if detail == "" && o.Failure == domain.FailureExitCode {
				detail = fmt.Sprintf("exit code %d", o.ExitCode)
			}
			fmt.Fprintf(&b, "    %s: %s\n", o.Item.Name, detail)
		}
	}

	if !r.DryRun && converted > 0 {
		saved := r.SpaceSaved()
		switch {
		case saved > 0:
			fmt.Fprintf(&b, "  %s saved (%s in, %s out)\n",
				humanize.Bytes(uint64(saved)), humanize.Bytes(uint64(r.InputBytes)), humanize.Bytes(uint64(r.OutputBytes)))
		case saved < 0:
			fmt.Fprintf(&b, "  %s larger than the input (%s in, %s out)\n",
				humanize.Bytes(uint64(-saved)), humanize.Bytes(uint64(r.InputBytes)), humanize.Bytes(uint64(r.OutputBytes)))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
