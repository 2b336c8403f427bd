package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/goodtune/timeleak/internal/config"
	"github.com/goodtune/timeleak/internal/storage"
)

var seedTimeout time.Duration

var seedCmd = &cobra.Command{
	Use:   "seed FILE",
	Short: "Load usage records and taglines into the configured store",
	Long: `Load a JSON file of the form {"records": [...], "taglines": [...]} into the
configured store. Records use the document layout written by the device
uploader and replace any existing record for the same phone number. Intended
for development and emulator setups.`,
	Example: `  timeleak -c config.dev.yaml seed testdata/seed.json`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSeed,
}

func init() {
	seedCmd.Flags().DurationVar(&seedTimeout, "timeout", time.Minute, "Overall timeout")
	rootCmd.AddCommand(seedCmd)
}

// seedFile is the layout of a seed file.
type seedFile struct {
	Records  []storage.UsageRecord `json:"records"`
	Taglines []string              `json:"taglines"`
}

func readSeedFile(path string) (*seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	for i, rec := range seed.Records {
		if rec.PhoneNumber == "" {
			return nil, fmt.Errorf("records[%d]: phoneNumber is required", i)
		}
	}

	return &seed, nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	seed, err := readSeedFile(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(cmd, seedTimeout)
	defer cancel()

	store, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	green := color.New(color.FgGreen, color.Bold)

	for _, rec := range seed.Records {
		if err := store.Usage().Put(ctx, rec); err != nil {
			return fmt.Errorf("failed to store record for %s: %w", rec.PhoneNumber, err)
		}
	}
	green.Printf("✓ Stored %d usage record(s)", len(seed.Records))
	fmt.Printf(" in %s\n", store.Backend())

	if len(seed.Taglines) > 0 {
		if err := store.Taglines().Add(ctx, seed.Taglines...); err != nil {
			return fmt.Errorf("failed to store taglines: %w", err)
		}
		green.Printf("✓ Stored %d tagline(s)\n", len(seed.Taglines))
	}

	return nil
}
