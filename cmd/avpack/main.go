package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"

	"github.com/auroraview/avpack/internal/launch"
	"github.com/auroraview/avpack/pkg/logging"
)

const version = "1.0.0"

// Exit codes, distinguishable by wrapping tooling.
const (
	exitFailure = 1
	exitIOError = 2
	exitPanic   = 3
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "PANIC: %v\n", r)
			debug.PrintStack()
			os.Exit(exitPanic)
		}
	}()

	logger := logging.New("avpack", logging.Level(), nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	exePath, err := os.Executable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot locate own executable: %v\n", err)
		os.Exit(exitIOError)
	}

	// Startup state machine: an executable carrying an overlay is a packed
	// app and launches it; a plain one is the interactive packer CLI.
	// AVPACK_FORCE_CLI=1 forces the CLI even on a packed executable, for
	// inspecting a packed app with its own binary.
	if os.Getenv("AVPACK_FORCE_CLI") != "1" {
		launched, err := launch.Run(ctx, exePath, launch.NopEngine{Logger: logger}, logger)
		if launched {
			if err != nil {
				logger.Error("💥 packed app failed to launch", "error", err)
				os.Exit(exitFailure)
			}
			return
		}
	}

	if err := newRootCmd(ctx, exePath).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitFailure)
	}
}
