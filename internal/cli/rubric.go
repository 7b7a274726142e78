package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/evidentia/internal/model"
)

var rubricJSON bool

// rubricCmd represents the rubric command
var rubricCmd = &cobra.Command{
	Use:   "rubric",
	Short: "Inspect and validate scoring rubrics",
	Long: `Every weight, cap and threshold used in scoring comes from a versioned
rubric. The active rubric is the built-in default overlaid with the
"rubric" section of the config file.`,
}

var rubricShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the active rubric",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if rubricJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(cfg.Rubric)
		}

		data, err := yaml.Marshal(cfg.Rubric)
		if err != nil {
			return fmt.Errorf("error marshaling rubric: %w", err)
		}
		fmt.Print(string(data))
		return nil
	},
}

var rubricValidateCmd = &cobra.Command{
	Use:   "validate <rubric.yaml>",
	Short: "Validate a rubric file",
	Long: `Validate loads a rubric file over the built-in default rubric and checks
that weights are ordered, caps fit their maxima and points sum to each
sub-score maximum.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rubric, err := loadRubric(args[0])
		if err != nil {
			return err
		}
		if err := rubric.Validate(); err != nil {
			return fmt.Errorf("invalid rubric %s: %w", args[0], err)
		}
		fmt.Printf("✓ Rubric %s is valid (version %s)\n", args[0], rubric.Version)
		return nil
	},
}

// loadRubric reads a YAML rubric file over the default rubric
func loadRubric(path string) (model.Rubric, error) {
	rubric := model.DefaultRubric()

	data, err := os.ReadFile(path)
	if err != nil {
		return rubric, fmt.Errorf("read rubric: %w", err)
	}
	if err := yaml.Unmarshal(data, &rubric); err != nil {
		return rubric, fmt.Errorf("parse rubric: %w", err)
	}
	return rubric, nil
}

func init() {
	rootCmd.AddCommand(rubricCmd)
	rubricCmd.AddCommand(rubricShowCmd)
	rubricCmd.AddCommand(rubricValidateCmd)

	rubricShowCmd.Flags().BoolVar(&rubricJSON, "json", false, "print as JSON instead of YAML")
}
