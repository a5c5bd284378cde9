package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/opencode-ai/lspbridge/internal/app"
	"github.com/opencode-ai/lspbridge/internal/config"
	"github.com/opencode-ai/lspbridge/internal/format"
	"github.com/spf13/cobra"
)

var formatCmd = &cobra.Command{
	Use:   "format <file>",
	Short: "Format a file with the language server",
	Long: `Format asks the language server to format a file and prints the change
as a unified diff. With --write the formatted content is saved.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		write, _ := cmd.Flags().GetBool("write")
		file := args[0]

		cfg := config.Get()
		ctx := cmd.Context()
		a, err := app.New(ctx, cfg, app.Options{Files: args, ReadOnly: !write})
		if err != nil {
			return err
		}
		defer a.Shutdown()

		uris, err := openFiles(ctx, a.Session, args)
		if err != nil {
			return err
		}
		before, err := a.Session.Get(uris[0])
		if err != nil {
			return err
		}
		if err := waitReady(ctx, a.Session, cfg.LanguageService.HandshakeTimeout); err != nil {
			return err
		}

		after, err := a.Session.Format(ctx, uris[0])
		if err != nil {
			return fmt.Errorf("failed to format %s: %w", file, err)
		}

		name := filepath.ToSlash(file)
		if err := format.WriteDiff(os.Stdout, name, before.Content, after.Content, isTerminal(os.Stdout)); err != nil {
			return err
		}
		if write && after.Dirty {
			return a.Session.Save(ctx, uris[0])
		}
		return nil
	},
}

func init() {
	formatCmd.Flags().BoolP("write", "w", false, "Write the formatted file")
}
