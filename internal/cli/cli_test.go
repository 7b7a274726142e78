package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/ppiankov/evidentia/internal/model"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Setenv("NCBI_API_KEY", "ncbi-test")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Rubric.Version != model.DefaultRubric().Version {
		t.Errorf("rubric version = %q", cfg.Rubric.Version)
	}
	if cfg.PubMed.APIKey != "ncbi-test" {
		t.Errorf("pubmed api key = %q, want value from NCBI_API_KEY", cfg.PubMed.APIKey)
	}
}

func TestLoadConfig_File(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
llm:
  provider: ollama
  model: llama3
http:
  timeout: 30s
concurrency:
  workers: 2
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.LLM.Provider != "ollama" || cfg.LLM.Model != "llama3" {
		t.Errorf("llm = %s/%s, want ollama/llama3", cfg.LLM.Provider, cfg.LLM.Model)
	}
	if cfg.HTTP.Timeout.Seconds() != 30 {
		t.Errorf("http timeout = %v, want 30s", cfg.HTTP.Timeout)
	}
	if cfg.Concurrency.Workers != 2 {
		t.Errorf("workers = %d, want 2", cfg.Concurrency.Workers)
	}
	// Untouched sections keep their defaults
	if cfg.PubMed.MaxResults != 10 {
		t.Errorf("pubmed max results = %d, want default 10", cfg.PubMed.MaxResults)
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".evidentia", "config.yaml")

	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "rubric:") || !strings.Contains(string(data), "NCBI_API_KEY") {
		t.Errorf("Unexpected config content:\n%s", data)
	}

	if err := writeDefaultConfig(path); err == nil {
		t.Error("Expected error when config already exists")
	}
}

func TestLoadRubric(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "valid.yaml")
	if err := os.WriteFile(valid, []byte("version: custom-1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	rubric, err := loadRubric(valid)
	if err != nil {
		t.Fatal(err)
	}
	if rubric.Version != "custom-1" {
		t.Errorf("version = %q, want custom-1", rubric.Version)
	}
	if err := rubric.Validate(); err != nil {
		t.Errorf("Expected overlay on defaults to validate, got %v", err)
	}

	broken := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(broken, []byte("version: \"\"\ninsufficient_cap: 999\n"), 0644); err != nil {
		t.Fatal(err)
	}
	rubric, err = loadRubric(broken)
	if err != nil {
		t.Fatal(err)
	}
	if err := rubric.Validate(); err == nil {
		t.Error("Expected validation error")
	}

	if _, err := loadRubric(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
