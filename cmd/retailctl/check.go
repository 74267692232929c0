package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/eshaffer321/retail-go/pkg/retail"
)

// CheckResult is the outcome of listing one resource
type CheckResult struct {
	Resource string        `json:"resource"`
	Passed   bool          `json:"passed"`
	Count    int           `json:"count"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// CheckReport summarises a check run
type CheckReport struct {
	Timestamp   time.Time     `json:"timestamp"`
	BaseURL     string        `json:"base_url"`
	TotalTests  int           `json:"total_tests"`
	Passed      int           `json:"passed"`
	Failed      int           `json:"failed"`
	SuccessRate float64       `json:"success_rate"`
	Results     []CheckResult `json:"results"`
}

var errCheckFailed = errors.New("check failed")

// check lists the first page of every resource and reports which calls failed
func (a *app) check(ctx context.Context, args []string) error {
	fs := a.subcommand("check")
	outputDir := fs.String("output", "", "Directory for the JSON report (none when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !a.client.Auth.IsAuthenticated() {
		return retail.ErrNotAuthenticated
	}

	report := &CheckReport{
		Timestamp: time.Now(),
		BaseURL:   a.cfg.BaseURL,
		Results:   make([]CheckResult, 0, len(resources)),
	}

	for _, resource := range resources {
		a.logger.Debug("Checking", "resource", resource)
		result := a.checkResource(ctx, resource)
		report.Results = append(report.Results, result)

		if result.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
	}

	report.TotalTests = len(report.Results)
	if report.TotalTests > 0 {
		report.SuccessRate = float64(report.Passed) / float64(report.TotalTests) * 100
	}

	if *outputDir != "" {
		path, err := saveReport(report, *outputDir)
		if err != nil {
			return err
		}
		a.logger.Info("Report saved", "path", path)
	}

	a.printSummary(report)
	if report.Failed > 0 {
		return errors.Wrapf(errCheckFailed, "%d of %d resources failed", report.Failed, report.TotalTests)
	}
	return nil
}

func (a *app) checkResource(ctx context.Context, resource string) CheckResult {
	start := time.Now()
	result := CheckResult{Resource: resource}

	_, count, err := a.lister(resource)(ctx, &retail.ListOptions{PageSize: 1}, false)
	result.Duration = elapsed(time.Since(start))
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Passed = true
	result.Count = count
	return result
}

func saveReport(report *CheckReport, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "failed to create output directory")
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal report")
	}

	path := filepath.Join(dir, fmt.Sprintf("check_report_%d.json", report.Timestamp.Unix()))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", errors.Wrap(err, "failed to write report")
	}
	return path, nil
}

func (a *app) printSummary(report *CheckReport) {
	fmt.Fprintf(a.out, "Checked %s\n", report.BaseURL)
	for _, r := range report.Results {
		status := "ok"
		if !r.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(a.out, "  %-10s %-4s %6d  %v", r.Resource, status, r.Count, r.Duration)
		if r.Error != "" {
			fmt.Fprintf(a.out, "  %s", r.Error)
		}
		fmt.Fprintln(a.out)
	}
	fmt.Fprintf(a.out, "%d/%d passed (%.0f%%)\n", report.Passed, report.TotalTests, report.SuccessRate)
}
