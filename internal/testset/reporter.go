// SPDX-License-Identifier: Apache-2.0

package testset

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joomcode/errorx"
	"gopkg.in/yaml.v3"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
)

// Report aggregates the results of one harness invocation.
type Report struct {
	RunID      string        `yaml:"run_id"`
	StartedAt  time.Time     `yaml:"started_at"`
	FinishedAt time.Time     `yaml:"finished_at"`
	Results    []Result      `yaml:"results"`
	Duration   time.Duration `yaml:"duration"`
}

// NewReport creates a report with a fresh run ID and the clock started.
func NewReport() *Report {
	return &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
}

// Add appends results to the report.
func (r *Report) Add(results ...Result) {
	r.Results = append(r.Results, results...)
}

// Finish stamps the end time and total duration.
func (r *Report) Finish() {
	r.FinishedAt = time.Now()
	r.Duration = r.FinishedAt.Sub(r.StartedAt)
}

// Failed reports whether any test failed or was skipped due to an abort.
func (r *Report) Failed() bool {
	for _, res := range r.Results {
		if res.Failed() {
			return true
		}
	}
	return false
}

// PrintResult writes a one line colored verdict for a single test to stdout
// as it completes.
func PrintResult(res Result) {
	switch res.Status {
	case StatusPassed:
		fmt.Printf("  %s%s.%s%s %spassed%s (%s)\n", colorBold, res.TestSet, res.Test,
			colorReset, colorGreen, colorReset, res.Duration.Round(time.Millisecond))
	case StatusFailed:
		fmt.Printf("  %s%s.%s%s %sfailed%s: %s\n", colorBold, res.TestSet, res.Test,
			colorReset, colorRed, colorReset, res.Error)
	case StatusNotRun:
		fmt.Printf("  %s%s.%s%s %snot run%s\n", colorBold, res.TestSet, res.Test,
			colorReset, colorYellow, colorReset)
	}
}

// PrintSummary renders the per test set pass/fail totals as a table.
func (r *Report) PrintSummary() {
	type tally struct {
		passed, failed, notRun int
		duration               time.Duration
	}
	tallies := map[string]*tally{}
	order := []string{}
	for _, res := range r.Results {
		t, ok := tallies[res.TestSet]
		if !ok {
			t = &tally{}
			tallies[res.TestSet] = t
			order = append(order, res.TestSet)
		}
		switch res.Status {
		case StatusPassed:
			t.passed++
		case StatusFailed:
			t.failed++
		case StatusNotRun:
			t.notRun++
		}
		t.duration += res.Duration
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Test Set", "Passed", "Failed", "Not Run", "Duration"})
	for _, name := range order {
		t := tallies[name]
		tw.AppendRow(table.Row{name, t.passed, t.failed, t.notRun,
			t.duration.Round(time.Millisecond)})
	}
	tw.AppendFooter(table.Row{"Total", countStatus(r.Results, StatusPassed),
		countStatus(r.Results, StatusFailed), countStatus(r.Results, StatusNotRun),
		r.Duration.Round(time.Millisecond)})
	tw.SetStyle(table.StyleLight)
	tw.Render()
}

func countStatus(results []Result, s Status) int {
	n := 0
	for _, res := range results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// WriteFile persists the report as YAML under dir, named after the run ID.
func (r *Report) WriteFile(dir string) (string, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return "", errorx.InternalError.Wrap(err, "failed to marshal run report")
	}
	path := filepath.Join(dir, fmt.Sprintf("report-%s.yaml", r.RunID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errorx.ExternalError.Wrap(err, "failed to write run report to %s", path)
	}
	return path, nil
}
