package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var (
	settingsFile string
	envFile      string
	templatePath string
	dryRun       bool
	debugMode    bool
)

var rootCmd = &cobra.Command{
	Use:   "followup-mailer [settings-file]",
	Short: "Send decommission follow-up notifications from a tracking spreadsheet",
	Long: `Reads a tracking spreadsheet of servers pending an application-removal
decision, groups the pending rows by recipient, sends one HTML follow-up
notification per recipient over SMTP, and records follow-up counts in a
local database so repeat runs increment counters instead of duplicating rows.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) > 0 {
			settingsFile = args[0]
		}

		overrides := &ConfigOverrides{}
		if settingsFile != "" {
			overrides.SettingsPath = &settingsFile
		}
		if envFile != "" {
			overrides.EnvFilePath = &envFile
		}
		if templatePath != "" {
			overrides.TemplatePath = &templatePath
		}

		if debugMode {
			SetDebugMode(true)
		}

		cfg, err := NewConfig(overrides)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		processor, err := NewProcessor(cfg, dryRun)
		if err != nil {
			log.Fatalf("Failed to create processor: %v", err)
		}
		defer processor.Close()

		results, err := processor.Run()
		if err != nil {
			log.Fatalf("Run failed: %v", err)
		}

		if _, failed, _ := summarize(results); failed > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.Flags().StringVar(&envFile, "env-file", "", "Path to a key-value env file with SMTP credentials")
	rootCmd.Flags().StringVar(&templatePath, "template", "", "Path to a custom notification template file")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compose and log without sending")
	rootCmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
