package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/evidentia/internal/model"
	"github.com/ppiankov/evidentia/internal/pipeline"
)

var (
	population    string
	intervention  string
	comparator    string
	outcomes      []string
	domainTags    []string
	query         string
	maxResults    int
	llmProvider   string
	llmModel      string
	scoreGather   bool
	gatherTimeout time.Duration
)

// gatherCmd represents the gather command
var gatherCmd = &cobra.Command{
	Use:   "gather <claim>",
	Short: "Collect evidence for a claim and build a payload",
	Long: `Gather builds an evaluation payload for a claim:
- Search PubMed for studies matching the claim (or its PICO)
- Classify each study's design, species and retraction status
- Ask the configured synthesis provider to grade the evidence
- Fall back to heuristic axis scores when no provider is available

The payload is written as JSON; --score also scores it.

Example:
  evidentia gather "Vitamin D supplementation prevents fractures in older adults"
  evidentia gather "Garlic lowers blood pressure" --intervention garlic --outcome "blood pressure"
  evidentia gather "Fish oil prevents heart attacks" --llm-provider openai --score`,
	Args: cobra.ExactArgs(1),
	RunE: runGather,
}

func init() {
	rootCmd.AddCommand(gatherCmd)

	// Claim flags
	gatherCmd.Flags().StringVar(&population, "population", "", "PICO population")
	gatherCmd.Flags().StringVar(&intervention, "intervention", "", "PICO intervention")
	gatherCmd.Flags().StringVar(&comparator, "comparator", "", "PICO comparator")
	gatherCmd.Flags().StringArrayVar(&outcomes, "outcome", nil, "PICO outcome (repeatable)")
	gatherCmd.Flags().StringSliceVar(&domainTags, "tag", nil, "domain tags (comma-separated)")

	// Search flags
	gatherCmd.Flags().StringVar(&query, "query", "", "PubMed query (default: built from the claim)")
	gatherCmd.Flags().IntVar(&maxResults, "max-results", 0, "maximum studies to collect (default: pubmed.max_results)")

	// LLM flags
	gatherCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "synthesis provider (openai, anthropic, ollama)")
	gatherCmd.Flags().StringVar(&llmModel, "llm-model", "", "synthesis model name")

	// Output flags
	gatherCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (default: stdout)")
	gatherCmd.Flags().BoolVar(&pretty, "pretty", false, "indent JSON output")
	gatherCmd.Flags().BoolVar(&scoreGather, "score", false, "score the gathered payload")
	gatherCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the search and report cache")
	gatherCmd.Flags().DurationVar(&gatherTimeout, "timeout", 5*time.Minute, "overall timeout")
}

// gatherOutput is what the gather command writes
type gatherOutput struct {
	*pipeline.GatherResult
	Report *model.Report `json:"report,omitempty"`
}

func runGather(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), gatherTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}

	p, err := pipeline.NewPipeline(cfg, pipeline.WithLogger(newLogger(cfg.Output.Verbose)))
	if err != nil {
		return err
	}

	result, err := p.Gather(ctx, pipeline.GatherRequest{
		Claim: args[0],
		PICO: model.PICO{
			Population:   population,
			Intervention: intervention,
			Comparator:   comparator,
			Outcomes:     outcomes,
		},
		DomainTags: domainTags,
		Query:      query,
		MaxResults: maxResults,
	})
	if err != nil {
		return fmt.Errorf("gather failed: %w", err)
	}

	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "⚠ %s\n", w)
	}
	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "✓ Query: %s\n", result.Query)
		fmt.Fprintf(os.Stderr, "✓ Collected %d studies\n", len(result.Payload.IncludedStudies))
	}

	out := gatherOutput{GatherResult: result}
	if scoreGather {
		raw, err := json.Marshal(result.Payload)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		report, err := p.Evaluate(ctx, raw, "")
		if err != nil {
			printViolations(err)
			return fmt.Errorf("score failed: %w", err)
		}
		out.Report = report
	}

	renderer := pipeline.NewRenderer(cfg.Output.Pretty)
	if outJSON == "" {
		err = renderer.RenderJSON(os.Stdout, out)
	} else {
		err = renderer.WriteJSON(outJSON, out)
	}
	if err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	if out.Report != nil {
		renderer.RenderSummary(os.Stderr, out.Report)
	}
	return nil
}
