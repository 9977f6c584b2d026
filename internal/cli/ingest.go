package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"multirag/internal/domain"
	"multirag/internal/ingest"
)

var (
	ingestTarget string
	ingestSource string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path|url]...",
	Short: "Ingest files or web pages",
	Long: `Extracts text from each input (PDF, image, audio, video, markdown, text or
http(s) URL), cleans and chunks it, and stores the chunk embeddings.
Inputs that yield no text are reported and skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

var ingestTextCmd = &cobra.Command{
	Use:   "ingest-text [text]",
	Short: "Ingest raw text",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngestText,
}

func init() {
	for _, c := range []*cobra.Command{ingestCmd, ingestTextCmd} {
		c.Flags().StringVar(&ingestTarget, "target", "", "backend target: auto, local or remote")
		c.Flags().StringVar(&ingestSource, "source", "", "source label recorded with each chunk")
		rootCmd.AddCommand(c)
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	target, err := resolveTarget(ingestTarget)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	var failed []string
	for _, input := range args {
		res, err := services.Ingester.Ingest(ctx, input, ingestSource, target)
		switch {
		case errors.Is(err, domain.ErrExtractionEmpty):
			cmd.Printf("%s: no text could be extracted, skipped\n", input)
		case err != nil:
			cmd.PrintErrf("%s: %v\n", input, err)
			failed = append(failed, input)
		default:
			printIngestResult(cmd, input, res)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("ingest failed for %d input(s): %s", len(failed), strings.Join(failed, ", "))
	}
	return nil
}

func runIngestText(cmd *cobra.Command, args []string) error {
	target, err := resolveTarget(ingestTarget)
	if err != nil {
		return err
	}
	res, err := services.Ingester.IngestText(commandContext(cmd), args[0], ingestSource, target)
	if errors.Is(err, domain.ErrExtractionEmpty) {
		cmd.Println("Nothing to ingest: text is empty after cleaning.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	printIngestResult(cmd, "text", res)
	return nil
}

func printIngestResult(cmd *cobra.Command, input string, res ingest.Result) {
	perBackend := map[string]int{}
	for _, r := range res.Records {
		perBackend[r.Backend]++
	}
	cmd.Printf("%s: %d chunk records (%s: %d, %s: %d) modality=%s\n",
		input, len(res.Records),
		domain.BackendRemote, perBackend[domain.BackendRemote],
		domain.BackendLocal, perBackend[domain.BackendLocal],
		res.Modality)
}
