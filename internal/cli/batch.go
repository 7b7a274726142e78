package cli

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/evidentia/internal/metrics"
	"github.com/ppiankov/evidentia/internal/model"
	"github.com/ppiankov/evidentia/internal/pipeline"
	"github.com/ppiankov/evidentia/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	metricsFile  string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <dir|list-file>",
	Short: "Score many payloads in parallel",
	Long: `Batch scores payload files concurrently:
- Read every *.json file of a directory, or the paths listed in a file (one per line)
- Score payloads in parallel with a configurable worker count
- Write one report per payload to the output directory
- Optionally write Prometheus metrics for the run to a textfile

Example:
  evidentia batch ./claims
  evidentia batch claims.txt --concurrency 8 --output-dir ./reports
  evidentia batch ./claims --metrics-file /var/lib/node_exporter/evidentia.prom`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	// Concurrency flags
	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./evidentia-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")

	// Shared with score
	batchCmd.Flags().BoolVar(&pretty, "pretty", false, "indent JSON output")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the report cache")
	batchCmd.Flags().BoolVar(&resolveLinks, "resolve-links", false, "check that cited PMIDs, DOIs and URLs resolve before scoring")
	batchCmd.Flags().BoolVar(&noExtract, "no-extract", false, "do not extract citation mentions from claim text")
	batchCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	batchCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	target := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if cmd.Flags().Changed("concurrency") || cfg.Concurrency.Workers <= 0 {
		cfg.Concurrency.Workers = concurrency
	}
	if cmd.Flags().Changed("output-dir") || cfg.Output.Dir == "" {
		cfg.Output.Dir = outputDir
	}
	if metricsFile != "" {
		cfg.Output.MetricsFile = metricsFile
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Evidentia Batch Scoring\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input:        %s\n", target)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "  Rubric:       %s\n", cfg.Rubric.Version)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	p, err := pipeline.NewPipeline(cfg)
	if err != nil {
		return err
	}

	m := metrics.NewBatchMetrics()
	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers).WithObserver(m.Observe)

	fmt.Fprintf(os.Stderr, "⚙️  Scoring payloads with %d workers...\n\n", cfg.Concurrency.Workers)
	results, err := processor.ProcessTarget(ctx, target)
	if err != nil {
		return fmt.Errorf("process target: %w", err)
	}
	m.Finish()

	renderer := pipeline.NewRenderer(cfg.Output.Pretty)
	for _, result := range results {
		if result.Error != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Path, result.Error)
			printViolations(result.Error)
			continue
		}

		path := pipeline.ReportPath(cfg.Output.Dir, result.Path, result.Report.ID)
		if err := renderer.WriteJSON(path, result.Report); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", result.Path, err)
			continue
		}
		renderer.RenderSummary(os.Stderr, result.Report)
	}

	if cfg.Output.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.Output.MetricsFile); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to write metrics: %v\n", err)
		} else if cfg.Output.Verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote metrics: %s\n", cfg.Output.MetricsFile)
		}
	}

	summary := worker.Summarize(results)

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d payloads\n", summary.Total)
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", summary.Succeeded)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", summary.Failed)
	fmt.Fprintf(os.Stderr, "  Capped:    %d\n", summary.Capped)
	for _, label := range sortedLabels(summary.ByLabel) {
		fmt.Fprintf(os.Stderr, "  %-24s %d\n", string(label)+":", summary.ByLabel[label])
	}
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "\n")

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d payloads failed", summary.Failed, summary.Total)
	}
	return nil
}

func sortedLabels(counts map[model.Label]int) []model.Label {
	labels := make([]model.Label, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels
}
