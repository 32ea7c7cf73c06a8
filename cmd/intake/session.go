package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/intake/internal/config"
	"github.com/aretw0/intake/pkg/persistence/middleware"
)

// defaultMask hides the clinical identifiers when no mask_fields are configured.
var defaultMask = []string{"(?i)patientId", "(?i)hospitalId"}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage stored answer records",
	Long:  `List, inspect, and remove the answer records held by the configured store backend.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stored records",
	Run: func(cmd *cobra.Command, args []string) {
		backend := openBackend(cmd)
		defer backend.Close()

		keys, err := backend.Store.List(cmd.Context())
		if err != nil {
			fmt.Printf("Error listing records: %v\n", err)
			os.Exit(1)
		}

		if len(keys) == 0 {
			fmt.Println("No records found.")
			return
		}

		fmt.Println("Records:")
		for _, k := range keys {
			fmt.Println("- " + k)
		}
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <key>",
	Short: "Inspect a record with identifiers masked",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		key := args[0]
		backend := openBackend(cmd)
		defer backend.Close()

		record, err := backend.Store.Load(cmd.Context(), key)
		if err != nil {
			fmt.Printf("Error loading record '%s': %v\n", key, err)
			os.Exit(1)
		}

		patterns, _ := cmd.Flags().GetStringSlice("mask")
		data, err := json.MarshalIndent(middleware.MaskRecord(record, patterns), "", "  ")
		if err != nil {
			fmt.Printf("Error marshaling record: %v\n", err)
			os.Exit(1)
		}

		fmt.Println(string(data))
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <key>...",
	Short: "Remove one or more records",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		backend := openBackend(cmd)
		defer backend.Close()
		hasError := false

		for _, key := range args {
			if err := backend.Store.Delete(cmd.Context(), key); err != nil {
				fmt.Printf("Error removing '%s': %v\n", key, err)
				hasError = true
			} else {
				fmt.Printf("Removed record '%s'\n", key)
			}
		}

		if hasError {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)
	sessionInspectCmd.Flags().StringSlice("mask", defaultMask, "Field-name patterns shown as ***")
}

func openBackend(cmd *cobra.Command) *config.Backend {
	cfg, err := loadConfig(cmd)
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	backend, err := config.OpenStore(cmd.Context(), cfg)
	if err != nil {
		fmt.Printf("Error opening %s store: %v\n", cfg.Store.Backend, err)
		os.Exit(1)
	}
	return backend
}
