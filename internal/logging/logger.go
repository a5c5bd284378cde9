package logging

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"
)

func Info(msg string, args ...any) {
	slog.Info(msg, args...)
}

func Debug(msg string, args ...any) {
	slog.Debug(msg, args...)
}

func Warn(msg string, args ...any) {
	slog.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	slog.Error(msg, args...)
}

// RecoverPanic is meant to be deferred at the top of long-running goroutines.
// It logs the panic with a stack trace, writes a panic report into the
// current directory and then runs cleanup, if any.
func RecoverPanic(name string, cleanup func()) {
	r := recover()
	if r == nil {
		return
	}

	Error(fmt.Sprintf("Panic in %s: %v", name, r))

	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("lspbridge-panic-%s-%s.log", name, timestamp)

	file, err := os.Create(filename)
	if err != nil {
		Error(fmt.Sprintf("Failed to create panic log: %v", err))
	} else {
		defer file.Close()
		fmt.Fprintf(file, "Panic in %s: %v\n\n", name, r)
		fmt.Fprintf(file, "Time: %s\n\n", time.Now().Format(time.RFC3339))
		fmt.Fprintf(file, "Stack Trace:\n%s\n", debug.Stack())
		Info(fmt.Sprintf("Panic details written to %s", filename))
	}

	if cleanup != nil {
		cleanup()
	}
}
