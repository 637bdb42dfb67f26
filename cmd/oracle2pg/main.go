package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kadirbelkuyu/oracle2pg/internal/app"
	"github.com/kadirbelkuyu/oracle2pg/internal/config"
)

const appName = "Oracle to PostgreSQL Migration"

const asciiBanner = `
  ___                 _      ____  ____   ____
 / _ \ _ __ __ _  ___| | ___|___ \|  _ \ / ___|
| | | | '__/ _' |/ __| |/ _ \ __) | |_) | |  _
| |_| | | | (_| | (__| |  __// __/|  __/| |_| |
 \___/|_|  \__,_|\___|_|\___|_____|_|    \____|
`

var rootCmd = &cobra.Command{
	Use:   "oracle2pg [config]",
	Short: "Migrate an Oracle schema to PostgreSQL",
	Long: `Reads the catalog of an Oracle schema, writes the equivalent PostgreSQL DDL,
optionally applies it to a target database and copies the table rows.
Without a configuration file the parameters are collected interactively.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRoot,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run a migration described by a configuration file",
	RunE:  runMigrate,
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the tables of the configured Oracle schema",
	RunE:  runTables,
}

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List saved configuration profiles",
	RunE:  runProfiles,
}

var deleteProfileCmd = &cobra.Command{
	Use:   "delete <alias>",
	Short: "Delete a saved configuration profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteProfile,
}

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Collect the migration parameters on the console",
	RunE:  runInteractive,
}

var workflowService = app.NewService(os.Stdout)

var (
	configPath  string
	profileName string
	profilesDir string
	verbose     bool
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")

	migrateCmd.Flags().StringVar(&configPath, "config", "", "Path to the migration configuration file")
	migrateCmd.Flags().StringVar(&profileName, "profile", "", "Name of a saved profile to migrate with")
	migrateCmd.Flags().StringVar(&profilesDir, "dir", "configs", "Directory holding saved profiles")
	migrateCmd.MarkFlagsOneRequired("config", "profile")
	migrateCmd.MarkFlagsMutuallyExclusive("config", "profile")

	tablesCmd.Flags().StringVar(&configPath, "config", "", "Path to the migration configuration file")
	tablesCmd.MarkFlagRequired("config")

	profilesCmd.PersistentFlags().StringVar(&profilesDir, "dir", "configs", "Directory holding saved profiles")
	profilesCmd.AddCommand(deleteProfileCmd)

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(interactiveCmd)

	cobra.OnInitialize(func() {
		rootCmd.SilenceUsage = true
		rootCmd.SilenceErrors = true
	})
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func runRoot(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return runInteractive(cmd, args)
	}
	return migrate(cmd.Context(), args[0])
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if profileName != "" {
		cfg, err := workflowService.LoadProfile(profilesDir, profileName)
		if err != nil {
			return err
		}
		return workflowService.Migrate(cmd.Context(), cfg, verbose)
	}
	return migrate(cmd.Context(), configPath)
}

func migrate(ctx context.Context, path string) error {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("cannot load config: %w", err)
	}
	return workflowService.Migrate(ctx, cfg, verbose)
}

func runTables(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("cannot load config: %w", err)
	}
	return workflowService.ListTables(cmd.Context(), cfg)
}

func runProfiles(cmd *cobra.Command, args []string) error {
	return workflowService.ListProfiles(profilesDir)
}

func runDeleteProfile(cmd *cobra.Command, args []string) error {
	return workflowService.DeleteProfile(profilesDir, args[0])
}

func runInteractive(cmd *cobra.Command, args []string) error {
	application := app.NewApplication(os.Stdin, printBanner)
	return application.RunInteractive(cmd.Context())
}

func printBanner() {
	fmt.Print(asciiBanner)
	fmt.Println(appName)
	fmt.Println(strings.Repeat("-", len(appName)))
}
