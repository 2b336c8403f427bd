package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/goodtune/timeleak/internal/config"
	"github.com/goodtune/timeleak/internal/lookup"
	"github.com/goodtune/timeleak/internal/severity"
	"github.com/goodtune/timeleak/internal/storage"
	"github.com/goodtune/timeleak/internal/usage"
	"github.com/goodtune/timeleak/internal/web"
)

var (
	lookupCountry string
	lookupJSON    bool
	lookupTimeout time.Duration
)

var lookupCmd = &cobra.Command{
	Use:   "lookup [flags] PHONE",
	Short: "Look up screen time for a phone number",
	Long:  `Run a single lookup against the configured store and print the summary the web page would show.`,
	Example: `  timeleak lookup "(555) 123-4567"
  timeleak -c config.yaml lookup --country 44 "020 7946 0958"
  timeleak lookup --json +15551234567`,
	Args: cobra.ExactArgs(1),
	RunE: runLookup,
}

func init() {
	lookupCmd.Flags().StringVar(&lookupCountry, "country", "", "Default country calling code (overrides lookup.default_country_code)")
	lookupCmd.Flags().BoolVar(&lookupJSON, "json", false, "Print the API response instead of a summary")
	lookupCmd.Flags().DurationVar(&lookupTimeout, "timeout", 15*time.Second, "Lookup timeout")
	rootCmd.AddCommand(lookupCmd)
}

func runLookup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	country := strings.TrimPrefix(lookupCountry, "+")
	if country == "" {
		country = cfg.Lookup.DefaultCountryCode
	}

	ctx, cancel := contextWithTimeout(cmd, lookupTimeout)
	defer cancel()

	logger := quietLogger()

	store, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	service, err := newLookupService(cfg, store, logger)
	if err != nil {
		return err
	}

	agg, err := service.Lookup(ctx, args[0], country)
	if err != nil {
		printLookupFailure(args[0], err)
		return err
	}

	if lookupJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(web.NewScreenTimeResponse(agg, cfg.Display.DefaultGoalMinutes))
	}

	printLookupResult(web.NewResultsView(agg, cfg.Display.DefaultGoalMinutes, cfg.Display.TopApps))
	return nil
}

// printLookupResult prints the summary with severity colors
func printLookupResult(view *web.ResultsView) {
	cyan := color.New(color.FgCyan, color.Bold)
	yellow := color.New(color.FgYellow)

	fmt.Println()
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	cyan.Println("SCREEN TIME SUMMARY")
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	fmt.Printf("Phone:      %s\n", view.PhoneNumber)
	fmt.Printf("Date:       %s\n", view.Date)
	fmt.Print("Total:      ")
	rgb(severity.ForTotalVsGoal(float64(view.TotalMinutes), float64(view.GoalMinutes))).Add(color.Bold).Println(usage.FormatMinutes(view.TotalMinutes))
	if view.GoalDefault {
		fmt.Printf("Goal:       %s (default)\n", usage.FormatMinutes(view.GoalMinutes))
	} else {
		fmt.Printf("Goal:       %s\n", usage.FormatMinutes(view.GoalMinutes))
	}
	if view.Inconsistent {
		yellow.Println("Warning:    category totals exceed the total screen time")
	}
	fmt.Println()

	cyan.Println("Time by Category")
	if len(view.Categories) == 0 {
		fmt.Println("  (none)")
	}
	for _, row := range view.Categories {
		fmt.Printf("  %s %-14s ", row.Emoji, row.Name)
		rgb(severity.ForCategory(float64(row.Minutes))).Printf("%8s", usage.FormatMinutes(row.Minutes))
		fmt.Printf("  %3d%%\n", row.Percent)
	}
	fmt.Println()

	cyan.Println("Most Used Apps")
	if len(view.TopApps) == 0 {
		fmt.Println("  (none)")
	}
	for _, app := range view.TopApps {
		fmt.Printf("  %d. %-36s %8s  %3d%%  %s\n", app.Rank, app.Name, usage.FormatMinutes(app.Minutes), app.Percent, app.Category)
	}

	fmt.Println()
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()
}

func printLookupFailure(input string, err error) {
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow)

	red.Fprintf(os.Stderr, "✗ %s\n", lookup.Message(err))
	fmt.Fprintf(os.Stderr, "  Input:  %s\n", input)
	fmt.Fprintf(os.Stderr, "  Reason: %s\n", lookup.CodeOf(err))

	if errors.Is(err, lookup.ErrStoreUnavailable) {
		if hint := storage.Classify(err).Hint(); hint != "" {
			yellow.Fprintf(os.Stderr, "  Hint:   %s\n", hint)
		}
	}
}

func rgb(c severity.RGB) *color.Color {
	return color.RGB(int(c.R), int(c.G), int(c.B))
}
