// Package runner executes one external converter process per work item and
// maps process-level signals into item outcomes.
package runner

import (
	"bufio"
	"context"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Slynchy/webp-conv/internal/classify"
	"github.com/Slynchy/webp-conv/internal/domain"
)

// Settings is the fixed argument template applied to every invocation.
// Read-only for the duration of a batch.
type Settings struct {
	Quality int
	Method  int
	Passes  int
	Filter  int
	Extra   []string
}

// Args returns a fresh argument vector for one item. The template is copied
// per invocation so concurrent items never observe each other's appended
// output/source tail.
func (s Settings) Args(item domain.WorkItem) []string {
	args := make([]string, 0, 11+len(s.Extra))
	args = append(args,
		"-q", strconv.Itoa(s.Quality),
		"-m", strconv.Itoa(s.Method),
		"-pass", strconv.Itoa(s.Passes),
		"-f", strconv.Itoa(s.Filter),
	)
	args = append(args, s.Extra...)
	args = append(args, "-o", item.DestPath, item.SourcePath)
	return args
}

// Runner spawns the converter for individual work items.
type Runner struct {
	CwebpPath string
	Settings  Settings
	DryRun    bool
	Debug     bool
}

// Run converts one item and returns its terminal outcome.
//
// Exactly one outcome is produced per item: either the first stderr line
// classified as an error finalizes the item immediately, or process exit
// does. Whichever fires first wins; the losing path is a no-op. On early
// finalization the converter is left to exit on its own and is reaped by a
// background goroutine.
//
// The context gates admission only, before Run is called. A converter that
// has started always runs to completion; cancelling ctx never kills it, so
// no half-written destination file is left behind.
func (r *Runner) Run(ctx context.Context, item domain.WorkItem) domain.Outcome {
	start := time.Now()

	if r.DryRun {
		if r.Debug {
			log.Printf("[runner] dry-run, skipping %s", item.Name)
		}
		return domain.Outcome{Item: item, Status: domain.StatusSuccess}
	}

	args := r.Settings.Args(item)
	cmd := exec.Command(r.CwebpPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return failed(item, err.Error(), start)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return failed(item, err.Error(), start)
	}
	if err := cmd.Start(); err != nil {
		return failed(item, err.Error(), start)
	}
	if r.Debug {
		log.Printf("[runner] started pid %d: %s %s", cmd.Process.Pid, r.CwebpPath, strings.Join(args, " "))
	}

	done := make(chan domain.Outcome, 1)
	var once sync.Once
	finalize := func(o domain.Outcome) {
		once.Do(func() {
			o.Item = item
			o.Duration = time.Since(start)
			done <- o
		})
	}

	// Each builder is appended by its scanner goroutine only; the wait
	// goroutine reads them strictly after both scanners finish.
	var diag strings.Builder
	var out strings.Builder
	scanDone := make(chan struct{})
	outDone := make(chan struct{})

	go func() {
		defer close(scanDone)
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			line := scanner.Text()
			diag.WriteString(line)
			diag.WriteString("\n")
			if classify.IsError(line) {
				finalize(domain.Outcome{
					Status:  domain.StatusFailed,
					Failure: domain.FailureDiagnostic,
					Detail:  line,
				})
				// Keep draining stderr so the process is never blocked on a
				// full pipe after the item has been finalized.
			}
		}
	}()

	go func() {
		defer close(outDone)
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			line := scanner.Text()
			out.WriteString(line)
			out.WriteString("\n")
			if r.Debug {
				log.Printf("[runner] %s stdout: %s", item.Name, line)
			}
		}
	}()

	go func() {
		<-scanDone
		<-outDone
		err := cmd.Wait()
		stderrText := strings.TrimSpace(diag.String())

		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				detail := stderrText
				if detail == "" {
					detail = strings.TrimSpace(out.String())
				}
				finalize(domain.Outcome{
					Status:   domain.StatusFailed,
					Failure:  domain.FailureExitCode,
					ExitCode: exitErr.ExitCode(),
					Detail:   detail,
				})
			} else {
				finalize(domain.Outcome{
					Status:  domain.StatusFailed,
					Failure: domain.FailureDiagnostic,
					Detail:  err.Error(),
				})
			}
			return
		}

		if stderrText != "" {
			finalize(domain.Outcome{Status: domain.StatusWarning, Detail: stderrText})
		} else {
			finalize(domain.Outcome{Status: domain.StatusSuccess})
		}
	}()

	o := <-done
	fillSizes(&o)
	if r.Debug {
		log.Printf("[runner] %s finished in %.2fs: %s", item.Name, o.Duration.Seconds(), o.Status)
	}
	return o
}

func failed(item domain.WorkItem, detail string, start time.Time) domain.Outcome {
	return domain.Outcome{
		Item:     item,
		Status:   domain.StatusFailed,
		Failure:  domain.FailureDiagnostic,
		Detail:   detail,
		Duration: time.Since(start),
	}
}

func fillSizes(o *domain.Outcome) {
	if fi, err := os.Stat(o.Item.SourcePath); err == nil {
		o.InputBytes = fi.Size()
	}
	if o.Status == domain.StatusSuccess || o.Status == domain.StatusWarning {
		if fi, err := os.Stat(o.Item.DestPath); err == nil {
			o.OutputBytes = fi.Size()
		}
	}
}
