package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wiredraw/wiredraw/internal/document"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file...]",
		Short: "Check that board documents decode and are well formed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var failed int
			for _, path := range args {
				doc, err := readDocument(path)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "FAIL %v\n", err)
					failed++
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok   %s: %d nodes on %gx%g board\n",
					path, doc.Count(), doc.Board.Width, doc.Board.Height)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d documents invalid", failed, len(args))
			}
			return nil
		},
	}
}

func newSampleCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write a small example circuit board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := document.Encode(document.NewSampleDocument())
			if err != nil {
				return err
			}
			if output == "" {
				return writeLine(cmd.OutOrStdout(), string(data))
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}
