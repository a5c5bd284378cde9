package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/opencode-ai/lspbridge/internal/config"
	"github.com/opencode-ai/lspbridge/internal/format"
	"github.com/opencode-ai/lspbridge/internal/version"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lspbridge",
	Short: "Headless editor sessions backed by a language server",
	Long: `lspbridge keeps documents in an editor session connected to a language
server. It reports diagnostics, formats files and autosaves edits, reconnecting
to the server whenever the connection drops.`,
	Example: `
  # Print diagnostics for some files
  lspbridge check src/main.ts src/util.ts

  # Diagnostics as JSON
  lspbridge check -f json src/main.ts

  # Show what the formatter would change, then apply it
  lspbridge format src/main.ts
  lspbridge format --write src/main.ts

  # Keep a session open and follow diagnostics as files change
  lspbridge watch src/main.ts

  # Talk to a language service over WebSocket
  LSPBRIDGE_LANGUAGESERVICE_ADDRESS=ws://localhost:3000/lsp lspbridge check a.ts
  `,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		debug, _ := cmd.Flags().GetBool("debug")
		cwd, _ := cmd.Flags().GetString("cwd")

		if cwd != "" {
			if err := os.Chdir(cwd); err != nil {
				return fmt.Errorf("failed to change directory: %v", err)
			}
		}
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current working directory: %v", err)
		}
		_, err = config.Load(wd, debug)
		return err
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flag("version").Changed {
			fmt.Println(version.Version)
			return nil
		}
		return cmd.Help()
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func outputFormat(cmd *cobra.Command) (format.OutputFormat, error) {
	value, _ := cmd.Flags().GetString("output-format")
	f, err := format.Parse(value)
	if err != nil {
		return "", fmt.Errorf("invalid format option: %w", err)
	}
	return f, nil
}

func addOutputFormatFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("output-format", "f", format.Text.String(), "Output format (text, json)")
	cmd.RegisterFlagCompletionFunc("output-format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return format.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

func init() {
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug")
	rootCmd.PersistentFlags().StringP("cwd", "c", "", "Current working directory")
	rootCmd.Flags().BoolP("version", "v", false, "Version")

	rootCmd.AddCommand(checkCmd, formatCmd, watchCmd)
}
