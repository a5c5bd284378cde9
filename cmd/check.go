package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/opencode-ai/lspbridge/internal/app"
	"github.com/opencode-ai/lspbridge/internal/config"
	"github.com/opencode-ai/lspbridge/internal/format"
	"github.com/opencode-ai/lspbridge/internal/logging"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [files...]",
	Short: "Print diagnostics for files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outFormat, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		wait, _ := cmd.Flags().GetDuration("wait")

		cfg := config.Get()
		ctx := cmd.Context()
		a, err := app.New(ctx, cfg, app.Options{Files: args, ReadOnly: true})
		if err != nil {
			return err
		}
		defer a.Shutdown()

		uris, err := openFiles(ctx, a.Session, args)
		if err != nil {
			return err
		}
		if err := waitReady(ctx, a.Session, cfg.LanguageService.HandshakeTimeout); err != nil {
			return err
		}
		start := time.Now()
		sets := waitDiagnostics(ctx, a.Session, uris, wait)
		logging.Debug("diagnostics collected", "files", len(uris), "elapsed", time.Since(start))

		if err := format.WriteDiagnostics(os.Stdout, sets, outFormat, isTerminal(os.Stdout)); err != nil {
			return err
		}
		if n := format.Summarize(sets).Errors; n > 0 {
			return fmt.Errorf("%d errors", n)
		}
		return nil
	},
}

func init() {
	addOutputFormatFlag(checkCmd)
	checkCmd.Flags().Duration("wait", 3*time.Second, "How long to wait for the server to publish diagnostics")
}
