package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	dupThreshold float64
	dupTarget    string
	dupJSON      bool
)

var duplicatesCmd = &cobra.Command{
	Use:   "duplicates [text]",
	Short: "Find stored chunks that nearly duplicate a text",
	Args:  cobra.ExactArgs(1),
	RunE:  runDuplicates,
}

func init() {
	duplicatesCmd.Flags().Float64Var(&dupThreshold, "threshold", 0, "minimum cosine similarity (default from config)")
	duplicatesCmd.Flags().StringVar(&dupTarget, "target", "", "backend target: auto, local or remote")
	duplicatesCmd.Flags().BoolVar(&dupJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(duplicatesCmd)
}

func runDuplicates(cmd *cobra.Command, args []string) error {
	target, err := resolveTarget(dupTarget)
	if err != nil {
		return err
	}
	threshold := dupThreshold
	if !cmd.Flags().Changed("threshold") {
		threshold = 0.85
		if appConfig != nil {
			threshold = appConfig.Duplicates.Threshold
		}
	}
	found, err := services.Duplicates(threshold, target).Check(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("duplicate check failed: %w", err)
	}
	if dupJSON {
		return outputJSON(cmd, found)
	}
	if len(found) == 0 {
		cmd.Println("No duplicates found.")
		return nil
	}
	for i, d := range found {
		cmd.Printf("  [%d] %s similarity=%.3f (%s)\n", i+1, d.ID, d.Similarity, d.Backend)
		if s := snippet(d.Content, 160); s != "" {
			cmd.Printf("      %s\n", s)
		}
	}
	return nil
}
