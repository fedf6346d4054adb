// Package cli implements the wiredraw command: offline tools for checking,
// generating and previewing board documents without a server.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/wiredraw/wiredraw/internal/asset"
	"github.com/wiredraw/wiredraw/internal/config"
	"github.com/wiredraw/wiredraw/internal/document"
	"github.com/wiredraw/wiredraw/internal/engine"
)

// Set with -ldflags "-X github.com/wiredraw/wiredraw/internal/cli.version=...".
var version = "dev"

// Execute runs the wiredraw command tree.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd builds the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "wiredraw",
		Short:         "Inspect and preview wiredraw board documents",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newValidateCmd())
	root.AddCommand(newSampleCmd())
	root.AddCommand(newRenderCmd())
	root.AddCommand(newSnapCmd())
	return root
}

func readDocument(path string) (*document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := document.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// openEditor loads doc into an editor configured from EDITOR_* variables.
// Image sources are resolved from assetDir when it is set.
func openEditor(ctx context.Context, doc *document.Document, assetDir string) (*engine.Editor, error) {
	ed, err := config.LoadEditor()
	if err != nil {
		return nil, fmt.Errorf("load editor settings: %w", err)
	}
	var resolver engine.AssetResolver
	if assetDir != "" {
		store, err := asset.NewStore(assetDir)
		if err != nil {
			return nil, err
		}
		resolver = store
	}
	e := engine.NewEditor(ed.Settings(), resolver)
	if err := e.LoadDocument(ctx, doc); err != nil {
		return nil, err
	}
	return e, nil
}

func writeLine(w io.Writer, s string) error {
	_, err := fmt.Fprintln(w, s)
	return err
}
