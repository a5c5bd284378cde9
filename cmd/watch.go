package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/opencode-ai/lspbridge/internal/app"
	"github.com/opencode-ai/lspbridge/internal/config"
	"github.com/opencode-ai/lspbridge/internal/diagnostics"
	"github.com/opencode-ai/lspbridge/internal/format"
	"github.com/opencode-ai/lspbridge/internal/logging"
	"github.com/opencode-ai/lspbridge/internal/session"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [files...]",
	Short: "Keep a session open and print diagnostics as they change",
	Long: `Watch opens files in a long-running session. Edits made on disk are
reloaded, diagnostics are printed whenever the server publishes new ones and
connection changes are reported. Stop it with Ctrl+C.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outFormat, err := outputFormat(cmd)
		if err != nil {
			return err
		}

		cfg := config.Get()
		ctx := cmd.Context()
		a, err := app.New(ctx, cfg, app.Options{
			Files: args,
			Watch: true,
			Callbacks: session.Callbacks{
				OnChangeFile: func(uri, content string) {
					logging.Debug("document changed", "uri", uri, "bytes", len(content))
				},
			},
		})
		if err != nil {
			return err
		}
		defer a.Shutdown()

		uris, err := openFiles(ctx, a.Session, args)
		if err != nil {
			return err
		}
		if err := a.Session.Activate(uris[0]); err != nil {
			return err
		}

		styled := isTerminal(os.Stdout)
		for _, uri := range uris {
			go printDiagnostics(ctx, a.Session, uri, outFormat, styled)
		}

		states := a.Session.SubscribeState(ctx)
		for {
			select {
			case <-ctx.Done():
				return nil
			case event, ok := <-states:
				if !ok {
					return nil
				}
				fmt.Fprintf(os.Stderr, "language service: %s\n", event.Payload)
			}
		}
	},
}

func printDiagnostics(ctx context.Context, sess *session.Session, uri string, outFormat format.OutputFormat, styled bool) {
	defer logging.RecoverPanic("watch-diagnostics", nil)
	for set := range sess.Diagnostics(ctx, uri) {
		if err := format.WriteDiagnostics(os.Stdout, []diagnostics.Set{set}, outFormat, styled); err != nil {
			logging.Error("failed to print diagnostics", "uri", uri, "error", err)
		}
	}
}

func init() {
	addOutputFormatFlag(watchCmd)
}
