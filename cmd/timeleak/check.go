package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/goodtune/timeleak/internal/config"
	"github.com/goodtune/timeleak/internal/storage"
)

var (
	checkSample  int
	checkTimeout time.Duration
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check connectivity to the usage store",
	Long: `Connect to the configured store, read a few usage documents and the taglines,
and report what was found. Failures are classified with a suggested fix.`,
	Example: `  timeleak check
  timeleak -c config.yaml check --sample 10`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().IntVar(&checkSample, "sample", 5, "Number of usage documents to read")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 15*time.Second, "Overall timeout")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, cancel := contextWithTimeout(cmd, checkTimeout)
	defer cancel()

	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow)

	fmt.Println()
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	cyan.Println("STORE CHECK")
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	fmt.Printf("Backend:    %s\n", cfg.Storage.Type)
	switch cfg.Storage.Type {
	case "firestore":
		fmt.Printf("Project:    %s\n", cfg.Storage.Firestore.ProjectID)
		fmt.Printf("Database:   %s\n", cfg.Storage.Firestore.DatabaseID)
		if cfg.Storage.Firestore.EmulatorHost != "" {
			fmt.Printf("Emulator:   %s\n", cfg.Storage.Firestore.EmulatorHost)
		}
	case "redis":
		fmt.Printf("Address:    %s:%d (db %d)\n", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port, cfg.Storage.Redis.DB)
	}
	fmt.Println()

	fail := func(step string, err error) error {
		failure := storage.Classify(err)
		red.Printf("✗ %s failed\n", step)
		fmt.Printf("  Error:    %v\n", err)
		if failure != storage.FailureNone {
			fmt.Printf("  Category: %s\n", failure)
			yellow.Printf("  Hint:     %s\n", failure.Hint())
		}
		fmt.Println()
		return fmt.Errorf("store check failed: %w", err)
	}

	start := time.Now()
	store, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		return fail("Connect", err)
	}
	defer store.Close()
	green.Printf("✓ Connected")
	fmt.Printf(" (%s)\n", time.Since(start).Round(time.Millisecond))

	result, err := store.Probe(ctx, checkSample)
	if err != nil {
		return fail("Read usage data", err)
	}
	green.Printf("✓ Read usage data")
	fmt.Printf(" from %s\n", result.Location)
	fmt.Printf("  Documents sampled: %d\n", result.SampledDocuments)
	if result.Sample != nil {
		fmt.Printf("  Sample number:     %s\n", result.Sample.PhoneNumber)
		fmt.Printf("  Sample apps:       %d\n", len(result.Sample.AppUsage))
	} else {
		yellow.Println("  No usage documents found. Lookups will report no data.")
	}

	taglines, err := store.Taglines().List(ctx)
	if err != nil {
		// Taglines fall back to the configured text, so this is not fatal.
		failure := storage.Classify(err)
		yellow.Printf("! Read taglines failed: %v\n", err)
		if hint := failure.Hint(); hint != "" {
			yellow.Printf("  Hint:     %s\n", hint)
		}
	} else {
		green.Printf("✓ Read taglines")
		fmt.Printf(" (%d stored)\n", len(taglines))
	}

	fmt.Println()
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	return nil
}
