package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/intake"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the step registry for consistency",
	Long:  `Reports dangling edges, unreachable steps, duplicate routes and steps without a controller.`,
	Run: func(cmd *cobra.Command, args []string) {
		n, err := runValidate()
		if err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Step registry is valid! ✅ (%d steps)\n", n)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// runValidate builds a wizard over the default registry, which validates the
// graph and the controller table.
func runValidate() (int, error) {
	wiz, err := intake.New()
	if err != nil {
		return 0, err
	}
	return len(wiz.Steps()), nil
}
