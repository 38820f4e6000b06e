// Package launch is the packed-app side of the startup state machine:
// detect the overlay in our own executable, extract it, start the backend
// if there is one and hand the window description to the WebView engine.
package launch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/auroraview/avpack/pkg/config"
	"github.com/auroraview/avpack/pkg/extract"
	"github.com/auroraview/avpack/pkg/overlay"
	"github.com/auroraview/avpack/pkg/shellwords"
)

// View is everything the WebView collaborator needs to show the app.
type View struct {
	Title     string
	URL       string
	Root      string
	Index     string
	Window    config.WindowConfig
	UserAgent string
	Debug     bool
	IconPNG   []byte
}

// Engine renders a View. The real engine is platform code linked in by the
// embedding application; this repository only defines the boundary.
type Engine interface {
	Show(ctx context.Context, view View) error
}

// NopEngine logs the view instead of rendering it. Used when no platform
// engine is linked, and by tests.
type NopEngine struct {
	Logger hclog.Logger
}

// Show implements Engine.
func (e NopEngine) Show(_ context.Context, view View) error {
	logger := e.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger.Info("🪟 no WebView engine linked, window not shown",
		"title", view.Title,
		"url", view.URL,
		"size", fmt.Sprintf("%dx%d", view.Window.Width, view.Window.Height),
	)
	return nil
}

// Run executes the launch branch against the executable at exePath. The
// first return reports whether the overlay branch was taken: false means
// "plain shell, run the interactive CLI instead". A detected but damaged
// overlay is fatal; Run never falls back to CLI mode in that case, the
// installation is corrupt.
func Run(ctx context.Context, exePath string, engine Engine, logger hclog.Logger) (bool, error) {
	container, err := overlay.DetectFile(exePath)
	if err != nil {
		return true, fmt.Errorf("inspecting own executable: %w", err)
	}
	if container == nil {
		logger.Debug("no overlay found, staying in packer mode", "exe", exePath)
		return false, nil
	}

	logger.Debug("🚀 overlay detected",
		"sections", len(container.Sections),
		"offset", container.Offset,
	)

	manifest, err := extract.Extract(ctx, container, extract.Options{Logger: logger})
	if err != nil {
		return true, err
	}
	defer func() {
		if cleanErr := manifest.Cleanup(); cleanErr != nil {
			logger.Debug("⚠️ session cleanup failed", "error", cleanErr)
		}
	}()

	payload := manifest.Payload
	mode, err := payload.DecodedMode()
	if err != nil {
		return true, err
	}

	view := View{
		Title:     payload.Title,
		Window:    payload.Window,
		UserAgent: payload.UserAgent,
		Debug:     payload.Debug,
		IconPNG:   payload.WindowIcon,
	}

	var backend *exec.Cmd
	switch m := mode.(type) {
	case config.URLMode:
		view.URL = m.URL

	case config.FrontendMode:
		view.Root = manifest.Root
		view.Index = m.EntryDocument()
		view.URL = indexURL(manifest.Root, m.EntryDocument())

	case config.FullStackMode:
		view.Root = manifest.Root
		view.Index = m.Frontend.EntryDocument()
		view.URL = indexURL(manifest.Root, m.Frontend.EntryDocument())

		backend, err = backendCommand(ctx, manifest, &m.Backend, payload.Env)
		if err != nil {
			return true, err
		}
	}

	if backend != nil {
		logger.Info("⚙️ starting backend",
			"kind", payload.Mode.Backend.Kind,
			"entry", payload.Mode.Backend.Entry,
			"dir", backend.Dir,
		)
		if err := backend.Start(); err != nil {
			return true, fmt.Errorf("start backend: %w", err)
		}
		// No supervision: if the backend dies the window stays up; when the
		// window closes the backend is killed with the session.
		defer func() {
			if backend.Process != nil {
				backend.Process.Kill()
				backend.Wait()
			}
		}()
	}

	if err := engine.Show(ctx, view); err != nil {
		return true, fmt.Errorf("webview engine: %w", err)
	}
	return true, nil
}

// backendCommand builds the backend process rooted at the session
// directory. It is returned unstarted.
func backendCommand(ctx context.Context, m *extract.Manifest, b *config.Backend, env map[string]string) (*exec.Cmd, error) {
	entryAbs, ok := m.Files[b.Entry]
	if !ok {
		return nil, fmt.Errorf("%w: backend entry %q not among extracted files",
			overlay.ErrMalformedOverlay, b.Entry)
	}

	extraArgs, err := shellwords.Split(b.Args)
	if err != nil {
		return nil, fmt.Errorf("backend args: %w", err)
	}

	var cmd *exec.Cmd
	switch b.Kind {
	case config.BackendPython:
		interp, err := findInterpreter("python3", "python")
		if err != nil {
			return nil, err
		}
		cmd = exec.CommandContext(ctx, interp, append([]string{entryAbs}, extraArgs...)...)

	case config.BackendNode:
		interp, err := findInterpreter("node", "nodejs")
		if err != nil {
			return nil, err
		}
		cmd = exec.CommandContext(ctx, interp, append([]string{entryAbs}, extraArgs...)...)

	case config.BackendGo, config.BackendRust:
		// Compiled backends: the entry is the executable itself. Extracted
		// files are written 0644, so restore the execute bit first.
		if err := os.Chmod(entryAbs, 0o755); err != nil {
			return nil, fmt.Errorf("mark backend executable: %w", err)
		}
		cmd = exec.CommandContext(ctx, entryAbs, extraArgs...)

	default:
		return nil, fmt.Errorf("%w: unknown backend kind %q", config.ErrInvalidConfig, b.Kind)
	}

	cmd.Dir = m.Root
	cmd.Env = mergeEnv(os.Environ(), env)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd, nil
}

func findInterpreter(candidates ...string) (string, error) {
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no interpreter found (tried %v)", candidates)
}

func mergeEnv(base []string, extra map[string]string) []string {
	merged := append([]string{}, base...)
	for k, v := range extra {
		merged = append(merged, k+"="+v)
	}
	return merged
}

func indexURL(root, index string) string {
	return "file://" + filepath.ToSlash(filepath.Join(root, filepath.FromSlash(index)))
}
