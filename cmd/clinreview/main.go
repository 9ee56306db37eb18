// Package main implements the clinreview CLI tool: it processes FHIR
// bundle files into chart-review reports.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	cr "github.com/gofhir/clinreview"
	"github.com/gofhir/clinreview/engine"
	"github.com/gofhir/clinreview/fhirutil"
	"github.com/gofhir/clinreview/tables"
)

const usage = `clinreview - FHIR chart-review report generator

Usage:
  clinreview [options] <file>...
  clinreview [options] -           (read from stdin)
  cat bundle.json | clinreview -   (pipe input)

Examples:
  clinreview bundle.json
  clinreview -now 2024-03-01 bundle.json
  clinreview -output json bundle.json
  clinreview -tables overrides.yaml bundle.json
  clinreview *.json
  cat bundle.json | clinreview -

Options:
`

// OutputFormat specifies the output format.
type OutputFormat string

// Output format constants.
const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
)

// Config holds CLI configuration.
type Config struct {
	Now         time.Time
	Output      OutputFormat
	TablesFile  string
	Sequential  bool
	Quiet       bool
	ShowVersion bool
	Help        bool
	Files       []string
}

// ReportOutput is one file's entry in the JSON output.
type ReportOutput struct {
	Source   string         `json:"source"`
	Report   *engine.Report `json:"report,omitempty"`
	Error    string         `json:"error,omitempty"`
	Duration string         `json:"duration"`
}

func main() {
	config := parseFlags()

	if config.ShowVersion {
		fmt.Printf("clinreview v%s\n", cr.Version)
		os.Exit(0)
	}

	if config.Help || len(config.Files) == 0 {
		flag.Usage()
		os.Exit(0)
	}

	os.Exit(run(config))
}

func parseFlags() *Config {
	config := &Config{
		Now:    time.Now().UTC(),
		Output: OutputText,
	}

	var now, output string

	flag.StringVar(&now, "now", "", "Reference time (RFC 3339 or YYYY-MM-DD; default: current time)")
	flag.StringVar(&output, "output", "text", "Output format: text, json")
	flag.StringVar(&config.TablesFile, "tables", "", "YAML file with reference-table overrides")
	flag.BoolVar(&config.Sequential, "sequential", false, "Run analyzers sequentially")
	flag.BoolVar(&config.Quiet, "quiet", false, "Only show high-severity items")
	flag.BoolVar(&config.ShowVersion, "v", false, "Show version")
	flag.BoolVar(&config.Help, "help", false, "Show help")

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}

	flag.Parse()

	if now != "" {
		parsed, ok := fhirutil.ParseDate(now)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: invalid -now value: %s\n", now)
			os.Exit(2)
		}
		config.Now = parsed
	}

	if strings.EqualFold(output, "json") {
		config.Output = OutputJSON
	}

	config.Files = flag.Args()
	return config
}

func run(config *Config) int {
	t, err := loadTables(config.TablesFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load tables: %v\n", err)
		return 1
	}

	var opts []cr.Option
	if config.Sequential {
		opts = append(opts, cr.WithParallelAnalyzers(false))
	}

	eng, err := engine.NewWithTables(t, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize engine: %v\n", err)
		return 1
	}

	hasErrors := false
	outputs := make([]ReportOutput, 0, len(config.Files))

	for _, file := range config.Files {
		if file == "-" {
			data, readErr := io.ReadAll(os.Stdin)
			if readErr != nil {
				fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", readErr)
				hasErrors = true
				continue
			}
			output, failed := processData(eng, data, "stdin", config)
			outputs = append(outputs, output)
			if failed {
				hasErrors = true
			}
			continue
		}

		matches, globErr := filepath.Glob(file)
		if globErr != nil {
			fmt.Fprintf(os.Stderr, "Error with pattern '%s': %v\n", file, globErr)
			hasErrors = true
			continue
		}
		if len(matches) == 0 {
			fmt.Fprintf(os.Stderr, "No files match pattern: %s\n", file)
			hasErrors = true
			continue
		}

		for _, match := range matches {
			output, failed := processFile(eng, match, config)
			outputs = append(outputs, output)
			if failed {
				hasErrors = true
			}
		}
	}

	if config.Output == OutputJSON {
		jsonOutput, _ := json.MarshalIndent(outputs, "", "  ")
		fmt.Println(string(jsonOutput))
	}

	if hasErrors {
		return 1
	}
	return 0
}

// loadTables builds the reference tables, applying YAML overrides when
// a file is given.
func loadTables(path string) (*tables.Tables, error) {
	if path == "" {
		return tables.Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	overrides, err := tables.ParseOverrides(data)
	if err != nil {
		return nil, err
	}
	cfg, err := overrides.Apply(tables.DefaultConfig())
	if err != nil {
		return nil, err
	}
	return tables.New(cfg), nil
}

func processFile(eng *engine.Engine, path string, config *Config) (ReportOutput, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if config.Output == OutputText {
			fmt.Printf("Error reading %s: %v\n", path, err)
		}
		return ReportOutput{Source: path, Error: err.Error()}, true
	}
	return processData(eng, data, path, config)
}

func processData(eng *engine.Engine, data []byte, name string, config *Config) (ReportOutput, bool) {
	start := time.Now()
	report, err := eng.Process(context.Background(), data, config.Now)
	duration := time.Since(start).Round(time.Microsecond)

	if err != nil {
		if config.Output == OutputText {
			if errors.Is(err, cr.ErrNoPatient) {
				fmt.Printf("== %s ==\nSkipped: bundle has no Patient resource\n\n", name)
			} else {
				fmt.Printf("Error processing %s: %v\n", name, err)
			}
		}
		return ReportOutput{
			Source:   name,
			Error:    err.Error(),
			Duration: duration.String(),
		}, true
	}

	if config.Output == OutputText {
		printTextReport(name, report, duration, config)
	}

	return ReportOutput{
		Source:   name,
		Report:   report,
		Duration: duration.String(),
	}, false
}

func printTextReport(name string, report *engine.Report, duration time.Duration, config *Config) {
	sel := report.Selection

	fmt.Printf("== %s ==\n", name)
	if p := sel.Patient; p != nil {
		fmt.Printf("Patient: %s %s (%s)\n", p.GivenName, p.FamilyName, p.ID)
	}
	fmt.Printf("Selected: %d labs, %d medications, %d conditions, %d encounters\n",
		len(sel.LabValues), len(sel.Medications), len(sel.Conditions), len(sel.Encounters))
	fmt.Printf("Review items: %d (%d high)\n", len(report.Items), report.HighSeverityCount())
	fmt.Printf("Duration: %s\n", duration)

	if len(report.Items) > 0 {
		fmt.Println("\nItems:")
		for _, item := range report.Items {
			if config.Quiet && item.Severity != cr.SeverityHigh {
				continue
			}

			flag := "  "
			if item.ActionRequired {
				flag = " !"
			}
			fmt.Printf("  %s%s [%s] %s: %s\n",
				severityIcon(item.Severity), flag, item.Type, item.Title, item.Description)
		}
	}

	fmt.Println()
}

func severityIcon(severity cr.Severity) string {
	switch severity {
	case cr.SeverityHigh:
		return "HIGH  "
	case cr.SeverityMedium:
		return "MEDIUM"
	case cr.SeverityLow:
		return "LOW   "
	default:
		return "      "
	}
}
