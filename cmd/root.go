package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mailpilot/internal/app"
	"mailpilot/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "mailpilot",
	Short: "Mailpilot email triage service",
	Long: `Mailpilot classifies incoming emails against a corpus of historical
emails using vector similarity and drafts a personalized reply suggestion.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	// PersistentPreRunE runs before any subcommand's RunE and wires the app.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Bare root and help output need no backing services.
		if cmd.Name() == cmd.Root().Name() || cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		opts := optionsForCommand(cmd)
		appInstance, err := app.NewApp(cfg, opts)
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}

		ctx := context.WithValue(cmd.Context(), appKey, appInstance)
		cmd.SetContext(ctx)
		return nil
	},
}

// optionsForCommand decides which optional subsystems a subcommand needs, so
// e.g. a direct load does not require Redis.
func optionsForCommand(cmd *cobra.Command) app.Options {
	opts := app.Options{}
	switch cmd.Name() {
	case "serve", "process", "history":
		opts.NeedHistory = true
	case "load":
		if enqueue, _ := cmd.Flags().GetBool("enqueue"); enqueue {
			opts.NeedJobClient = true
		}
	}
	return opts
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Define a custom type for the context key to avoid collisions.
type contextKey string

const appKey contextKey = "app"

// GetAppFromContext retrieves the app instance placed by PersistentPreRunE.
func GetAppFromContext(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("application instance not found in context")
	}
	return appInstance, nil
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check database connectivity and other diagnostics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		appInstance, err := GetAppFromContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to get app instance: %w", err)
		}
		defer appInstance.Close()

		fmt.Println("Checking vector store connectivity...")
		if err := appInstance.VectorStore.Ping(ctx); err != nil {
			return fmt.Errorf("vector store ping failed: %w", err)
		}
		fmt.Println("Vector store connection successful.")
		return nil
	},
}
