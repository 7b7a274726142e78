package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/evidentia/internal/pipeline"
)

var (
	extractText    string
	extractTimeout time.Duration
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract [url]",
	Short: "Extract claim candidates and citations from a page or text",
	Long: `Extract finds health claim candidates and citation mentions:
- Fetch the page (respecting robots.txt) and pick a source adapter
  (PubMed, Wikipedia or generic)
- List sentences that read like health or efficacy claims
- Build a citation audit of PMIDs, DOIs, URLs, journals and author-year references

The citation audit can be pasted into a payload as citation_audit.

Example:
  evidentia extract https://en.wikipedia.org/wiki/Vitamin_D
  evidentia extract https://pubmed.ncbi.nlm.nih.gov/30415637/ --resolve-links
  evidentia extract --text "A 2019 NEJM trial (PMID 30415637) found vitamin D prevents cancer"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVar(&extractText, "text", "", "extract from this text instead of a URL")
	extractCmd.Flags().DurationVar(&extractTimeout, "timeout", 2*time.Minute, "overall timeout")
	extractCmd.Flags().BoolVar(&resolveLinks, "resolve-links", false, "check that extracted citations resolve")
	extractCmd.Flags().BoolVar(&pretty, "pretty", false, "indent JSON output")
	extractCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	extractCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && strings.TrimSpace(extractText) == "" {
		return errors.New("either a URL or --text is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), extractTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)

	p, err := pipeline.NewPipeline(cfg)
	if err != nil {
		return err
	}

	var result *pipeline.ExtractResult
	if len(args) == 1 {
		if cfg.Output.Verbose {
			fmt.Fprintf(os.Stderr, "⚙️  Fetching %s...\n", args[0])
		}
		result, err = p.ExtractURL(ctx, args[0])
		if err != nil {
			return fmt.Errorf("extract failed: %w", err)
		}
	} else {
		result = p.ExtractText(ctx, extractText)
	}

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "✓ Adapter: %s\n", result.Adapter)
		fmt.Fprintf(os.Stderr, "✓ Extracted %d claims\n", len(result.Claims))
		fmt.Fprintf(os.Stderr, "✓ Extracted %d citation mentions\n", len(result.Citations.Mentions))
	}

	return pipeline.NewRenderer(cfg.Output.Pretty).RenderJSON(os.Stdout, result)
}
