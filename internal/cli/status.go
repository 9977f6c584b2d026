package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	summarizeCmd = &cobra.Command{
		Use:   "summarize [text]",
		Short: "Summarize a text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := services.Vector.Summarize(commandContext(cmd), args[0])
			if err != nil {
				return fmt.Errorf("summarize failed: %w", err)
			}
			cmd.Println(out)
			return nil
		},
	}

	statusLimit int
	statusJSON  bool

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show remote backend status and recent uploads",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
)

func init() {
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 10, "number of recent uploads to list")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(summarizeCmd, statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	st := services.Vector.RemoteStatus()
	recent := services.Vector.RecentUploads(commandContext(cmd), statusLimit)
	if statusJSON {
		return outputJSON(cmd, map[string]any{"remote": st, "recent": recent})
	}
	state := "unavailable"
	if st.Available {
		state = "available"
	}
	cmd.Printf("Remote: %s\n", state)
	if st.URL != "" {
		cmd.Printf("  URL: %s\n  Collection: %s\n  Vector dim: %d\n", st.URL, st.Collection, st.VectorDim)
	}
	cmd.Printf("Recent uploads: %d\n", len(recent))
	for _, p := range recent {
		cmd.Printf("  - source=%v modality=%v\n", p["source"], p["modality"])
	}
	return nil
}
