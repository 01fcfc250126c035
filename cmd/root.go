package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/hlsub/config"
	"github.com/s0up4200/hlsub/heyloyalty"
	"github.com/s0up4200/hlsub/subscription"
)

var (
	cfgFile  string
	cfg      *config.Config
	logger   zerolog.Logger
	hlClient *heyloyalty.Client
	service  *subscription.Service

	// Command flags
	dryRun bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "hlsub",
	Short: "Manage Heyloyalty mailing list subscriptions",
	Long: `hlsub looks up Heyloyalty lists and members, subscribes or updates
members and shows which lists an email address is subscribed to.`,
	PersistentPreRunE: initializeApp,
	SilenceUsage:      true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "d", false, "show changes without sending them")

	rootCmd.AddCommand(testCmd)
}

// initializeApp initializes the configuration and clients
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger = setupLogger(cfg.Logging).With().Str("run_id", uuid.NewString()).Logger()

	hlClient, err = heyloyalty.NewClient(cfg.Heyloyalty.APIKey, cfg.Heyloyalty.APISecret, logger,
		heyloyalty.WithBaseURL(cfg.Heyloyalty.URL),
		heyloyalty.WithTimeout(cfg.Heyloyalty.Timeout),
		heyloyalty.WithUserAgent("hlsub/"+version),
	)
	if err != nil {
		return fmt.Errorf("failed to create Heyloyalty client: %w", err)
	}

	service = subscription.NewService(hlClient, logger,
		subscription.WithConcurrency(cfg.Subscription.Concurrency),
	)

	return nil
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Console format
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !isatty.IsTerminal(os.Stderr.Fd()),
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test connection to Heyloyalty",
	Long:  `Verify the configured API key and secret by fetching the account's lists.`,
	RunE:  runTest,
}

func runTest(cmd *cobra.Command, args []string) error {
	fmt.Printf("Testing connection to Heyloyalty at %s...\n", cfg.Heyloyalty.URL)

	ctx := context.Background()
	if err := hlClient.TestConnection(ctx); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	fmt.Println("✓ Connection successful!")

	names, err := hlClient.ListNames(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("- Total lists: %d\n", len(names))
	fmt.Printf("- Lists in status summary: %d\n", len(cfg.Subscription.Lists))

	return nil
}
