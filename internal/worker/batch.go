package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/evidentia/internal/model"
)

// Evaluator defines the interface for evaluating one payload file
type Evaluator interface {
	EvaluateFile(ctx context.Context, path string) (*model.Report, error)
}

// EvalJob represents one payload evaluation
type EvalJob struct {
	Index     int
	Path      string
	Evaluator Evaluator
	Observe   func(*EvalResult)
}

// Execute evaluates the payload and reports to the observer, if any
func (j *EvalJob) Execute(ctx context.Context) Result {
	start := time.Now()
	report, err := j.Evaluator.EvaluateFile(ctx, j.Path)

	result := &EvalResult{
		Index:    j.Index,
		Path:     j.Path,
		Report:   report,
		Duration: time.Since(start),
		Error:    err,
	}
	if err != nil {
		result.Report = nil
	}

	if j.Observe != nil {
		j.Observe(result)
	}
	return result
}

// EvalResult represents the result of one payload evaluation
type EvalResult struct {
	Index    int
	Path     string
	Report   *model.Report
	Duration time.Duration
	Error    error
}

// GetError returns the error from the evaluation
func (r *EvalResult) GetError() error {
	return r.Error
}

// BatchProcessor evaluates many payload files concurrently
type BatchProcessor struct {
	evaluator   Evaluator
	concurrency int
	observe     func(*EvalResult)
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(evaluator Evaluator, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		evaluator:   evaluator,
		concurrency: concurrency,
	}
}

// WithObserver registers a callback invoked from worker goroutines as each evaluation finishes
func (b *BatchProcessor) WithObserver(observe func(*EvalResult)) *BatchProcessor {
	b.observe = observe
	return b
}

// ProcessFiles evaluates payload files concurrently and returns results in input order.
// Files never reached because ctx was cancelled carry the context error.
func (b *BatchProcessor) ProcessFiles(ctx context.Context, paths []string) []*EvalResult {
	if len(paths) == 0 {
		return []*EvalResult{}
	}

	pool := NewPoolContext(ctx, b.concurrency)
	pool.Start()

	for i, path := range paths {
		pool.Submit(&EvalJob{
			Index:     i,
			Path:      path,
			Evaluator: b.evaluator,
			Observe:   b.observe,
		})
	}

	slots := pool.Wait()
	results := make([]*EvalResult, len(paths))
	for i, path := range paths {
		if r, ok := slots[i].(*EvalResult); ok {
			results[i] = r
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		results[i] = &EvalResult{Index: i, Path: path, Error: fmt.Errorf("not evaluated: %w", err)}
	}

	return results
}

// ProcessTarget evaluates every payload named by a directory or list file
func (b *BatchProcessor) ProcessTarget(ctx context.Context, target string) ([]*EvalResult, error) {
	paths, err := CollectPayloads(target)
	if err != nil {
		return nil, err
	}

	return b.ProcessFiles(ctx, paths), nil
}

// CollectPayloads lists payload files: the *.json files of a directory in
// name order, or the paths listed in a text file
func CollectPayloads(target string) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("stat target: %w", err)
	}

	if !info.IsDir() {
		return ReadPathsFromFile(target)
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(target, entry.Name()))
	}
	sort.Strings(paths)

	return paths, nil
}

// ReadPathsFromFile reads payload paths from a file (one per line).
// Relative paths resolve against the list file's directory.
func ReadPathsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	base := filepath.Dir(filePath)

	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}

		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}

// Summary aggregates a batch run
type Summary struct {
	Total     int                 `json:"total"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
	Capped    int                 `json:"capped"`
	ByLabel   map[model.Label]int `json:"by_label"`
	Duration  time.Duration       `json:"duration"` // Sum of per-payload durations
}

// Summarize aggregates batch results
func Summarize(results []*EvalResult) Summary {
	summary := Summary{
		Total:   len(results),
		ByLabel: make(map[model.Label]int),
	}

	for _, r := range results {
		summary.Duration += r.Duration
		if r.Error != nil || r.Report == nil {
			summary.Failed++
			continue
		}
		summary.Succeeded++
		summary.ByLabel[r.Report.Breakdown.Label]++
		if r.Report.Breakdown.CapApplied {
			summary.Capped++
		}
	}

	return summary
}
