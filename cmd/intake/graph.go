package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/intake/internal/presentation/graph"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/registry"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the step graph visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of every flow, its steps and their branches.`,
	Run: func(cmd *cobra.Command, args []string) {
		reg := registry.Default()

		var overlay *graph.Overlay
		if current, _ := cmd.Flags().GetString("current"); current != "" {
			overlay = &graph.Overlay{Current: domain.StepID(current), Start: reg.Start()}
		}
		fmt.Print(graph.GenerateMermaid(reg.Steps(), overlay))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("current", "", "Highlight the step with this ID")
}
