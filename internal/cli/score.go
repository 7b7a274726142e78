package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/evidentia/internal/model"
	"github.com/ppiankov/evidentia/internal/pipeline"
	"github.com/ppiankov/evidentia/internal/validate"
)

var (
	outJSON      string
	pretty       bool
	timeout      time.Duration
	noCache      bool
	resolveLinks bool
	noExtract    bool
	httpProxy    string
	httpsProxy   string
)

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score <payload.json|->",
	Short: "Score one evaluation payload",
	Long: `Score validates one evaluation payload and computes its credibility score:
- Validate and normalize the payload
- Extract citation mentions from the claim text when no audit is given
- Flag studies published in predatory venues
- Compute sub-scores, penalties, bonuses and caps
- Emit the full auditable breakdown as JSON

Use "-" to read the payload from stdin.

Example:
  evidentia score claim.json
  evidentia score claim.json --json report.json --pretty
  cat claim.json | evidentia score -`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	// Output flags
	scoreCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (default: stdout)")
	scoreCmd.Flags().BoolVar(&pretty, "pretty", false, "indent JSON output")

	// Enrichment and HTTP flags
	scoreCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall timeout")
	scoreCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the report cache")
	scoreCmd.Flags().BoolVar(&resolveLinks, "resolve-links", false, "check that cited PMIDs, DOIs and URLs resolve before scoring")
	scoreCmd.Flags().BoolVar(&noExtract, "no-extract", false, "do not extract citation mentions from claim text")
	scoreCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	scoreCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

// applyFlags overrides configuration with the shared command flags
func applyFlags(cmd *cobra.Command, cfg *model.Config) {
	flags := cmd.Flags()
	if flags.Changed("no-cache") {
		cfg.Cache.Enabled = !noCache
	}
	if flags.Changed("resolve-links") {
		cfg.Enrichment.ResolveLinks = resolveLinks
	}
	if flags.Changed("no-extract") {
		cfg.Enrichment.ExtractCitations = !noExtract
	}
	if flags.Changed("pretty") {
		cfg.Output.Pretty = pretty
	}
	if httpProxy != "" {
		cfg.HTTP.HTTPProxy = httpProxy
	}
	if httpsProxy != "" {
		cfg.HTTP.HTTPSProxy = httpsProxy
	}
	cfg.Output.Verbose = cfg.Output.Verbose || verbose
}

func runScore(cmd *cobra.Command, args []string) error {
	source := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)

	raw, err := readPayload(source)
	if err != nil {
		return err
	}

	p, err := pipeline.NewPipeline(cfg)
	if err != nil {
		return err
	}

	if source == "-" {
		source = ""
	}
	report, err := p.Evaluate(ctx, raw, source)
	if err != nil {
		printViolations(err)
		return fmt.Errorf("score failed: %w", err)
	}

	renderer := pipeline.NewRenderer(cfg.Output.Pretty)
	if outJSON == "" {
		if err := renderer.RenderJSON(os.Stdout, report); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
	} else {
		if err := renderer.WriteJSON(outJSON, report); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		if cfg.Output.Verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", outJSON)
		}
	}

	renderer.RenderSummary(os.Stderr, report)
	return nil
}

// readPayload reads a payload file, or stdin for "-"
func readPayload(source string) ([]byte, error) {
	if source == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return data, nil
}

// printViolations lists each field violation of a rejected payload on stderr
func printViolations(err error) {
	var verr *validate.ValidationError
	if !errors.As(err, &verr) {
		return
	}
	for _, v := range verr.Violations {
		fmt.Fprintf(os.Stderr, "✗ %s: %s\n", v.Field, v.Reason)
	}
}
