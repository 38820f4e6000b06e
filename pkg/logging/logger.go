// Package logging centralizes hclog construction so the packer CLI and the
// packed-app launcher log in the same shape.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

// New creates a named hclog logger writing to output (stderr when nil).
//
// The level string may carry a "json:" prefix ("json:debug") to switch the
// logger to JSON output, which is what log collectors expect when a packed
// app runs unattended. Human output gets a line prefix so app stdout and
// packer diagnostics stay distinguishable.
func New(name string, level string, output io.Writer) hclog.Logger {
	if output == nil {
		output = os.Stderr
		// Packed apps on Windows have no visible stderr; AVPACK_LOG_PATH
		// redirects diagnostics to a file instead.
		if logPath := os.Getenv("AVPACK_LOG_PATH"); logPath != "" {
			if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
				output = f
			}
		}
	}

	jsonFormat := false
	if rest, ok := strings.CutPrefix(level, "json:"); ok {
		jsonFormat = true
		level = rest
	} else if level == "json" {
		jsonFormat = true
		level = "info"
	}

	if !jsonFormat {
		output = NewPrefixWriter("🪟 ", output)
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(level),
		JSONFormat: jsonFormat,
		Output:     output,
		TimeFormat: "2006-01-02T15:04:05Z", // UTC ISO format
		TimeFn: func() time.Time {
			return time.Now().UTC()
		},
	})
}

// Level returns the log level configured via AVPACK_LOG_LEVEL.
func Level() string {
	level := os.Getenv("AVPACK_LOG_LEVEL")
	if level == "" {
		level = "warn" // quiet by default; packed apps run on end-user machines
	}
	return level
}
