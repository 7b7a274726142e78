package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/evidentia/internal/model"
)

// Renderer writes reports and other results as JSON
type Renderer struct {
	pretty bool
}

// NewRenderer creates a new renderer; pretty enables indented output
func NewRenderer(pretty bool) *Renderer {
	return &Renderer{pretty: pretty}
}

// RenderJSON encodes v to w
func (r *Renderer) RenderJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if r.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// WriteJSON writes v to path, creating the parent directory
func (r *Renderer) WriteJSON(path string, v interface{}) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if err := r.RenderJSON(f, v); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode JSON: %w", err)
	}
	return f.Close()
}

// RenderSummary prints a one-line summary of a report
func (r *Renderer) RenderSummary(w io.Writer, report *model.Report) {
	b := report.Breakdown
	line := fmt.Sprintf("✓ %s: %d/100 %s (%s confidence, %s)", displayName(report), b.TotalScore, b.Label, b.Confidence, b.Mode)
	if b.CapApplied && b.CapReason != nil {
		line += " [capped: " + *b.CapReason + "]"
	}
	_, _ = fmt.Fprintln(w, line)
}

// ReportPath returns the output path for a report: <source base>.report.json,
// or <id>.json when the report has no source file
func ReportPath(dir, source, id string) string {
	name := id + ".json"
	if source != "" {
		base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
		if base = sanitizeFilename(base); base != "" {
			name = base + ".report.json"
		}
	}
	return filepath.Join(dir, name)
}

func displayName(report *model.Report) string {
	if report.Source != "" {
		return filepath.Base(report.Source)
	}
	return report.ID
}

// sanitizeFilename replaces characters that are unsafe in file names
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = replacer.Replace(strings.TrimSpace(s))

	// Limit length
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
