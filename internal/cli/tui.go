package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"multirag/internal/tui"
)

var tuiTarget string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive search",
	Long:  "Opens an interactive search screen. Press tab to switch between search and answer mode.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		target, err := resolveTarget(tuiTarget)
		if err != nil {
			return err
		}
		m := tui.New(services.Vector, target, resolveTopK(0))
		_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(commandContext(cmd))).Run()
		return err
	},
}

func init() {
	tuiCmd.Flags().StringVar(&tuiTarget, "target", "", "backend target: auto, local or remote")
	rootCmd.AddCommand(tuiCmd)
}
