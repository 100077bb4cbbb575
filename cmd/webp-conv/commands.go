package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Slynchy/webp-conv/internal/batch"
	"github.com/Slynchy/webp-conv/internal/config"
	"github.com/Slynchy/webp-conv/internal/domain"
	"github.com/Slynchy/webp-conv/internal/gate"
	"github.com/Slynchy/webp-conv/internal/journal"
	"github.com/Slynchy/webp-conv/internal/notify"
	"github.com/Slynchy/webp-conv/internal/preset"
	"github.com/Slynchy/webp-conv/internal/progress"
	"github.com/Slynchy/webp-conv/internal/runner"
	"github.com/Slynchy/webp-conv/internal/scan"
	"github.com/Slynchy/webp-conv/internal/watch"
)

var (
	convertInput        string
	convertOutput       string
	convertCwebp        string
	convertJobs         int
	convertPreset       string
	convertQuality      int
	convertDryRun       bool
	convertSilent       bool
	convertSkipExisting bool
	convertVerbose      bool

	watchInput  string
	watchOutput string

	historyLimit int
)

func init() {
	// convert command
	convertCmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a directory of images to WebP",
		RunE:  runConvert,
	}
	convertCmd.Flags().StringVarP(&convertInput, "input", "i", "", "input directory")
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "output directory")
	convertCmd.Flags().StringVar(&convertCwebp, "cwebp", "", "path to the cwebp binary")
	convertCmd.Flags().IntVarP(&convertJobs, "jobs", "j", 0, "max concurrent conversions")
	convertCmd.Flags().StringVar(&convertPreset, "preset", "", "encoding preset")
	convertCmd.Flags().IntVar(&convertQuality, "quality", 0, "override preset quality (0-100)")
	convertCmd.Flags().BoolVar(&convertDryRun, "dry-run", false, "enumerate and report without converting")
	convertCmd.Flags().BoolVar(&convertSilent, "silent", false, "suppress per-item output")
	convertCmd.Flags().BoolVar(&convertSkipExisting, "skip-existing", false, "skip files whose destination already exists")
	convertCmd.Flags().BoolVarP(&convertVerbose, "verbose", "v", false, "enable debug logging")
	convertCmd.MarkFlagRequired("input")
	convertCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(convertCmd)

	// watch command
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a directory and convert new images as they appear",
		RunE:  runWatch,
	}
	watchCmd.Flags().StringVarP(&watchInput, "input", "i", "", "input directory")
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "", "output directory")
	watchCmd.MarkFlagRequired("input")
	watchCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(watchCmd)

	// history command
	historyCmd := &cobra.Command{
		Use:   "history [BATCH_ID]",
		Short: "Show past batches, or the items of one batch",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "max batches to show")
	rootCmd.AddCommand(historyCmd)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}

// buildSettings resolves the preset and applies command-line overrides.
func buildSettings(cmd *cobra.Command, cfg *config.Config) (runner.Settings, error) {
	lib, err := preset.Load(cfg.Convert.PresetFile)
	if err != nil {
		return runner.Settings{}, err
	}

	p, ok := lib.Get(cfg.Convert.Preset)
	if !ok {
		return runner.Settings{}, fmt.Errorf("unknown preset %q, have: %s",
			cfg.Convert.Preset, strings.Join(lib.Names(), ", "))
	}

	s := runner.Settings{
		Quality: p.Quality,
		Method:  p.Method,
		Passes:  p.Passes,
		Filter:  p.Filter,
		Extra:   p.Extra,
	}
	if cmd.Flags().Changed("quality") {
		if convertQuality < 0 || convertQuality > 100 {
			return runner.Settings{}, fmt.Errorf("quality must be between 0 and 100, got %d", convertQuality)
		}
		s.Quality = convertQuality
	}
	return s, nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("cwebp") {
		cfg.Convert.CwebpPath = config.ExpandPath(convertCwebp)
	}
	if cmd.Flags().Changed("jobs") {
		cfg.Convert.MaxConcurrent = convertJobs
	}
	if cmd.Flags().Changed("preset") {
		cfg.Convert.Preset = convertPreset
	}
	if convertSkipExisting {
		cfg.Convert.SkipExisting = true
	}
	if convertVerbose {
		cfg.Convert.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	settings, err := buildSettings(cmd, cfg)
	if err != nil {
		return err
	}

	if !convertDryRun {
		if _, err := exec.LookPath(cfg.Convert.CwebpPath); err != nil {
			return fmt.Errorf("cwebp not found: %w", err)
		}
		if err := os.MkdirAll(convertOutput, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	items, err := scan.Enumerate(convertInput, convertOutput)
	if err != nil {
		return err
	}

	g, err := gate.New(int64(cfg.Convert.MaxConcurrent))
	if err != nil {
		return err
	}

	coord := &batch.Coordinator{
		Gate: g,
		Runner: &runner.Runner{
			CwebpPath: cfg.Convert.CwebpPath,
			Settings:  settings,
			DryRun:    convertDryRun,
			Debug:     cfg.Convert.Verbose,
		},
		SkipExisting: cfg.Convert.SkipExisting,
		Debug:        cfg.Convert.Verbose,
	}

	report := executeBatch(cmd.Context(), coord, convertInput, convertOutput, items, convertDryRun)
	finishBatch(cfg, report)

	// Item failures are reported in the summary, not through the exit code.
	return nil
}

// executeBatch runs the coordinator with a progress display when stdout is a
// terminal, or plain per-item logging otherwise.
func executeBatch(ctx context.Context, coord *batch.Coordinator, inputDir, outputDir string, items []domain.WorkItem, dryRun bool) *domain.BatchReport {
	if ctx == nil {
		ctx = context.Background()
	}

	interactive := !convertSilent && isatty.IsTerminal(os.Stdout.Fd())
	if !interactive {
		if !convertSilent {
			coord.Observer = consoleObserver{}
		}
		report := coord.Run(ctx, inputDir, outputDir, items, dryRun)
		if !convertSilent {
			fmt.Println(batch.Summarize(report))
		}
		return report
	}

	program := tea.NewProgram(progress.NewModel())
	coord.Observer = progress.NewReporter(program)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan *domain.BatchReport, 1)
	go func() {
		done <- coord.Run(ctx, inputDir, outputDir, items, dryRun)
	}()

	if _, err := program.Run(); err != nil {
		log.Printf("[cli] progress display failed: %v", err)
	}
	// Quitting the display early aborts items still waiting for admission.
	cancel()
	return <-done
}

// finishBatch records the report in the journal and sends notifications.
// Both are best effort; neither failure affects the exit code.
func finishBatch(cfg *config.Config, report *domain.BatchReport) {
	if report.DryRun {
		return
	}

	if !cfg.History.Disabled {
		store, err := journal.Open(cfg.History.DatabasePath)
		if err != nil {
			log.Printf("[cli] opening journal: %v", err)
		} else {
			if err := store.RecordBatch(report); err != nil {
				log.Printf("[cli] recording batch: %v", err)
			}
			store.Close()
		}
	}

	if err := buildNotifier(cfg).Send(notify.ForReport(report)); err != nil {
		log.Printf("[cli] sending notification: %v", err)
	}
}

func buildNotifier(cfg *config.Config) notify.Notifier {
	var notifiers []notify.Notifier
	if cfg.Notifications.Desktop {
		notifiers = append(notifiers, notify.NewDesktopNotifier(true))
	}
	if cfg.Notifications.SlackWebhook != "" {
		notifiers = append(notifiers, notify.NewSlackNotifier(cfg.Notifications.SlackWebhook))
	}
	if len(notifiers) == 0 {
		return notify.NoopNotifier{}
	}
	return notify.NewMultiNotifier(notifiers...)
}

// consoleObserver prints one line per finished item.
type consoleObserver struct{}

func (consoleObserver) OnBatchStart(total int) {
	fmt.Printf("converting %d files\n", total)
}

func (consoleObserver) OnItemDone(done, total int, o domain.Outcome) {
	switch o.Status {
	case domain.StatusFailed:
		fmt.Printf("  [%d/%d] %s FAILED: %s\n", done, total, o.Item.Name, o.Detail)
	case domain.StatusWarning:
		fmt.Printf("  [%d/%d] %s ok (warnings)\n", done, total, o.Item.Name)
	case domain.StatusSkipped:
		fmt.Printf("  [%d/%d] %s skipped\n", done, total, o.Item.Name)
	default:
		fmt.Printf("  [%d/%d] %s ok\n", done, total, o.Item.Name)
	}
}

func (consoleObserver) OnBatchDone(*domain.BatchReport) {}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	settings, err := buildSettings(cmd, cfg)
	if err != nil {
		return err
	}
	if _, err := exec.LookPath(cfg.Convert.CwebpPath); err != nil {
		return fmt.Errorf("cwebp not found: %w", err)
	}
	if err := os.MkdirAll(watchOutput, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, err := gate.New(int64(cfg.Convert.MaxConcurrent))
	if err != nil {
		return err
	}
	coord := &batch.Coordinator{
		Gate: g,
		Runner: &runner.Runner{
			CwebpPath: cfg.Convert.CwebpPath,
			Settings:  settings,
			Debug:     cfg.Convert.Verbose,
		},
		// Watch mode always skips up-to-date destinations so a rescan does
		// not reconvert the whole directory.
		SkipExisting: true,
		Observer:     consoleObserver{},
		Debug:        cfg.Convert.Verbose,
	}

	// One batch at a time; the watcher debounce already coalesces bursts.
	var mu sync.Mutex
	convert := func(files []string) {
		mu.Lock()
		defer mu.Unlock()

		items, err := scan.Enumerate(watchInput, watchOutput)
		if err != nil {
			log.Printf("[watch] enumerating %s: %v", watchInput, err)
			return
		}
		if len(items) == 0 {
			return
		}
		report := coord.Run(ctx, watchInput, watchOutput, items, false)
		if report.Total() > report.Skipped {
			fmt.Println(batch.Summarize(report))
			finishBatch(cfg, report)
		}
	}

	w, err := watch.New(watchInput, time.Duration(cfg.Watch.DebounceMs)*time.Millisecond, convert)
	if err != nil {
		return err
	}
	w.SetDebug(cfg.Convert.Verbose)
	if cfg.Watch.RescanCron != "" {
		if err := w.SetRescan(cfg.Watch.RescanCron); err != nil {
			return err
		}
	}

	// Convert whatever is already there before waiting for events.
	convert(nil)

	w.Start(ctx)
	defer w.Stop()
	fmt.Printf("watching %s (ctrl+c to stop)\n", watchInput)

	<-ctx.Done()
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := journal.Open(cfg.History.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	if len(args) == 1 {
		id, err := resolveBatchID(store, args[0])
		if err != nil {
			return err
		}
		items, err := store.Items(id)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Printf("no items recorded for batch %s\n", args[0])
			return nil
		}
		fmt.Fprintln(w, "FILE\tSTATUS\tDURATION\tSIZE\tDETAIL")
		for _, it := range items {
			size := ""
			if it.OutputBytes > 0 {
				size = humanize.Bytes(uint64(it.OutputBytes))
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				it.Name, it.Status, time.Duration(it.DurationMs)*time.Millisecond, size, it.Detail)
		}
		return nil
	}

	batches, err := store.RecentBatches(historyLimit)
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		fmt.Println("no batches recorded yet")
		return nil
	}

	fmt.Fprintln(w, "ID\tWHEN\tINPUT\tFILES\tOK\tFAILED\tSAVED")
	for _, b := range batches {
		saved := ""
		if diff := b.InputBytes - b.OutputBytes; diff > 0 {
			saved = humanize.Bytes(uint64(diff))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			shortID(b.ID), humanize.Time(b.StartedAt), b.InputDir,
			b.Total, b.Succeeded+b.Warned, b.Failed, saved)
	}
	return nil
}

// resolveBatchID expands a (possibly truncated) batch id to the full one.
func resolveBatchID(store *journal.Store, prefix string) (string, error) {
	batches, err := store.RecentBatches(1000)
	if err != nil {
		return "", err
	}
	var match string
	for _, b := range batches {
		if strings.HasPrefix(b.ID, prefix) {
			if match != "" && match != b.ID {
				return "", fmt.Errorf("batch id %q is ambiguous", prefix)
			}
			match = b.ID
		}
	}
	if match == "" {
		return prefix, nil
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
