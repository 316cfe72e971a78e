package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/loggard/loggard/internal/analysis"
	"github.com/loggard/loggard/internal/config"
	"github.com/loggard/loggard/internal/export"
	"github.com/loggard/loggard/internal/store"
)

// runCommand executes one of the offline subcommands against the datastore
// named by the configuration. It reports whether name was recognized.
func runCommand(ctx context.Context, name string, args []string, w io.Writer) (bool, error) {
	switch name {
	case "export":
		return true, cmdExport(ctx, args, w)
	case "report":
		return true, cmdReport(ctx, args, w)
	case "analyze":
		return true, cmdAnalyze(ctx, args, w)
	}
	return false, nil
}

func openStore(ctx context.Context, cfgPath string) (*store.Store, error) {
	cfg, err := config.Load(ctx, cfgPath)
	if err != nil {
		return nil, err
	}
	return store.Open(cfg.DBPath)
}

func window(hours int) (start, end int64) {
	end = time.Now().Unix()
	return end - int64(hours)*3600, end
}

// cmdExport dumps one dataset over a trailing window to w as CSV or JSON.
func cmdExport(ctx context.Context, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "YAML config file path")
	table := fs.String("table", "events", "dataset: system, network or events")
	format := fs.String("format", "csv", "output format: csv or json")
	hours := fs.Int("hours", 24, "window size in hours, ending now")
	source := fs.String("source", "", "filter events by source")
	level := fs.String("level", "", "filter events by level")
	ip := fs.String("ip", "", "filter events by IP address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	st, err := openStore(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	start, end := window(*hours)
	filter := store.EventFilter{Source: *source, Level: *level, IPAddress: *ip}

	switch *table + "/" + *format {
	case "system/csv":
		_, err = export.WriteSystemCSV(ctx, st, w, start, end)
	case "system/json":
		_, err = export.WriteSystemJSON(ctx, st, w, start, end)
	case "network/csv":
		_, err = export.WriteNetworkCSV(ctx, st, w, start, end)
	case "network/json":
		_, err = export.WriteNetworkJSON(ctx, st, w, start, end)
	case "events/csv":
		_, err = export.WriteLogEventsCSV(ctx, st, w, start, end, filter)
	case "events/json":
		_, err = export.WriteLogEventsJSON(ctx, st, w, start, end, filter)
	default:
		return fmt.Errorf("unknown export target %s/%s", *table, *format)
	}
	return err
}

// cmdReport renders the plain-text summary report over a trailing window.
func cmdReport(ctx context.Context, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "YAML config file path")
	hours := fs.Int("hours", 24, "window size in hours, ending now")
	if err := fs.Parse(args); err != nil {
		return err
	}

	st, err := openStore(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	start, end := window(*hours)
	return export.WriteSummaryReport(ctx, st, w, start, end)
}

// cmdAnalyze runs the issue detectors over a trailing window and prints the
// health assessment.
func cmdAnalyze(ctx context.Context, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "YAML config file path")
	hours := fs.Int("hours", 24, "window size in hours, ending now")
	if err := fs.Parse(args); err != nil {
		return err
	}

	st, err := openStore(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	engine := analysis.NewEngine(analysis.NewDetector(st, analysis.Thresholds{}))
	report := engine.AnalyzeHealth(ctx, *hours)

	fmt.Fprintf(w, "Health: %s (score %d/100)\n", report.Status, report.HealthScore)
	fmt.Fprintf(w, "  Security:    %d\n", report.SecurityScore)
	fmt.Fprintf(w, "  Performance: %d\n", report.PerformanceScore)
	fmt.Fprintf(w, "  Errors:      %d\n", report.ErrorScore)
	fmt.Fprintf(w, "Issues: %d total (%d critical, %d high, %d medium, %d low)\n",
		report.TotalIssues, report.CriticalIssues, report.HighIssues,
		report.MediumIssues, report.LowIssues)
	for _, issue := range report.TopIssues {
		fmt.Fprintf(w, "  [%3d] %s: %s\n", issue.Severity, issue.Category, issue.Title)
	}
	fmt.Fprintln(w, "Recommendations:")
	for _, rec := range report.Recommendations {
		fmt.Fprintf(w, "  - %s\n", rec)
	}
	return nil
}
