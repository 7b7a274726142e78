package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ppiankov/evidentia/internal/model"
	"github.com/ppiankov/evidentia/internal/worker"
)

func report(label model.Label, mode model.Mode, total int, capped bool, penalties ...string) *model.Report {
	r := &model.Report{Breakdown: model.ScoreBreakdown{
		Mode:       mode,
		Label:      label,
		TotalScore: total,
		CapApplied: capped,
	}}
	for _, p := range penalties {
		r.Breakdown.Penalties = append(r.Breakdown.Penalties, model.Modifier{Name: p, Magnitude: 5})
	}
	return r
}

func TestBatchMetrics_Observe(t *testing.T) {
	m := NewBatchMetrics()

	m.Observe(&worker.EvalResult{Report: report(model.LabelTrue, model.ModeStaged, 90, false), Duration: 10 * time.Millisecond})
	m.Observe(&worker.EvalResult{Report: report(model.LabelFalse, model.ModeStaged, 5, true, "retracted_primary_evidence"), Duration: time.Millisecond})
	m.Observe(&worker.EvalResult{Report: report(model.LabelMixed, model.ModeFallback, 62, false, "harm_potential"), Duration: time.Millisecond})
	m.Observe(&worker.EvalResult{Error: errors.New("bad payload"), Duration: time.Millisecond})

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"success", testutil.ToFloat64(m.EvaluationsTotal.WithLabelValues("success")), 3},
		{"error", testutil.ToFloat64(m.EvaluationsTotal.WithLabelValues("error")), 1},
		{"true label", testutil.ToFloat64(m.LabelsTotal.WithLabelValues("true_mostly_true")), 1},
		{"false label", testutil.ToFloat64(m.LabelsTotal.WithLabelValues("false_harmful")), 1},
		{"staged", testutil.ToFloat64(m.ModesTotal.WithLabelValues("staged")), 2},
		{"fallback", testutil.ToFloat64(m.ModesTotal.WithLabelValues("fallback")), 1},
		{"caps", testutil.ToFloat64(m.CapsTotal), 1},
		{"retraction penalty", testutil.ToFloat64(m.PenaltiesTotal.WithLabelValues("retracted_primary_evidence")), 1},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	if n := testutil.CollectAndCount(m.DurationSeconds); n != 1 {
		t.Errorf("Expected one duration histogram, got %d", n)
	}
}

func TestBatchMetrics_WriteTextfile(t *testing.T) {
	m := NewBatchMetrics()
	m.Observe(&worker.EvalResult{Report: report(model.LabelUnsupported, model.ModeStaged, 40, false), Duration: time.Millisecond})
	m.Finish()

	path := filepath.Join(t.TempDir(), "evidentia.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)

	for _, want := range []string{
		`evidentia_batch_evaluations_total{status="success"} 1`,
		`evidentia_batch_labels_total{label="unsupported_misleading"} 1`,
		`evidentia_batch_total_score_bucket{le="40"} 1`,
		"evidentia_batch_last_run_timestamp_seconds",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("Expected %q in textfile:\n%s", want, content)
		}
	}
}

func TestBatchMetrics_WriteTextfileBadPath(t *testing.T) {
	m := NewBatchMetrics()
	if err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "evidentia.prom")); err == nil {
		t.Error("Expected error writing into a missing directory")
	}
}

func TestLabelValue(t *testing.T) {
	tests := map[model.Label]string{
		model.LabelTrue:        "true_mostly_true",
		model.LabelMixed:       "mixed_context",
		model.LabelUnsupported: "unsupported_misleading",
		model.LabelFalse:       "false_harmful",
	}
	for label, want := range tests {
		if got := LabelValue(string(label)); got != want {
			t.Errorf("LabelValue(%q) = %q, want %q", label, got, want)
		}
	}
}
