package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/intake/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "intake",
	Short: "intake runs the step flow of the symptom and recording wizard",
	Long: `intake hosts the multi-step intake wizard: locale and consent, three audio
recordings, the health questionnaire and the submission to the study backend.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML configuration file (INTAKE_* variables override it)")
}

// loadConfig reads the configuration named by --config.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}
