package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/intake/internal/presentation/tui"
	"github.com/aretw0/intake/pkg/registry"
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "List every step with its route, kind and edges",
	Run: func(cmd *cobra.Command, args []string) {
		md := tui.Describe(registry.Default().Steps())

		// Pipes get the raw Markdown.
		raw, _ := cmd.Flags().GetBool("raw")
		if raw || !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Print(md)
			return
		}
		out, err := tui.NewRenderer()(md)
		if err != nil {
			fmt.Print(md)
			return
		}
		fmt.Print(out)
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().Bool("raw", false, "Print Markdown without terminal styling")
}
