package main

import (
	"github.com/opencode-ai/lspbridge/cmd"
	"github.com/opencode-ai/lspbridge/internal/logging"
)

func main() {
	defer logging.RecoverPanic("main", func() {
		logging.Error("Application terminated due to unhandled panic")
	})

	cmd.Execute()
}
