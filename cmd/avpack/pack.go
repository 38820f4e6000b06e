package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/auroraview/avpack/pkg/config"
	"github.com/auroraview/avpack/pkg/logging"
	"github.com/auroraview/avpack/pkg/manifest"
	"github.com/auroraview/avpack/pkg/packer"
)

func newRootCmd(ctx context.Context, exePath string) *cobra.Command {
	root := &cobra.Command{
		Use:           "avpack",
		Short:         "Package WebView apps into standalone executables",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newPackCmd(ctx, exePath),
		newInspectCmd(),
		newVerifyCmd(),
		newExtractCmd(ctx),
	)
	return root
}

type packFlags struct {
	manifestPath string
	shellPath    string
	url          string
	frontend     string
	index        string
	backendKind  string
	backendEntry string
	backendArgs  string
	output       string
	title        string
	width        int
	height       int
	icon         string
	compression  string
	level        int
	logLevel     string
}

func newPackCmd(ctx context.Context, exePath string) *cobra.Command {
	var flags packFlags

	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Build a packed executable from flags or an avpack.toml manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPack(ctx, exePath, cmd, &flags)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.manifestPath, "config", "c", "", "Path to avpack.toml manifest")
	f.StringVar(&flags.shellPath, "shell", "", "Shell binary to copy (defaults to this executable)")
	f.StringVar(&flags.url, "url", "", "Remote URL (url mode)")
	f.StringVar(&flags.frontend, "frontend", "", "Static frontend directory")
	f.StringVar(&flags.index, "index", "", "Entry document within the frontend (default index.html)")
	f.StringVar(&flags.backendKind, "backend-kind", "", "Backend runtime: python, node, go, rust")
	f.StringVar(&flags.backendEntry, "backend-entry", "", "Backend entry file")
	f.StringVar(&flags.backendArgs, "backend-args", "", "Extra backend arguments (shell word rules)")
	f.StringVarP(&flags.output, "output", "o", "", "Output executable path")
	f.StringVarP(&flags.title, "title", "t", "", "Window title")
	f.IntVar(&flags.width, "width", 0, "Window width")
	f.IntVar(&flags.height, "height", 0, "Window height")
	f.StringVar(&flags.icon, "icon", "", "PNG icon for window and executable")
	f.StringVar(&flags.compression, "compression", "", "Section codec: zstd, gzip, bzip2")
	f.IntVar(&flags.level, "level", 0, "Compression level (0 = codec default)")
	f.StringVar(&flags.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")

	return cmd
}

func runPack(ctx context.Context, exePath string, cmd *cobra.Command, flags *packFlags) error {
	level := flags.logLevel
	if level == "" {
		level = logging.Level()
	}
	logger := logging.New("packer", level, nil)

	cfg, err := buildConfig(cmd, flags)
	if err != nil {
		return err
	}

	shell := flags.shellPath
	if shell == "" {
		// Self-replicating default: the running binary is the generic shell.
		shell = exePath
	}

	pk, err := packer.New(cfg, packer.WithLogger(logger))
	if err != nil {
		return err
	}

	out, err := pk.Pack(ctx, shell)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "packed: %s\n", out)
	return nil
}

// buildConfig merges the manifest (when given) with flag overrides; flags
// win over manifest values.
func buildConfig(cmd *cobra.Command, flags *packFlags) (*config.PackConfig, error) {
	var cfg *config.PackConfig

	if flags.manifestPath != "" {
		m, err := manifest.Load(flags.manifestPath)
		if err != nil {
			return nil, err
		}
		cfg, err = m.ToPackConfig(filepath.Dir(flags.manifestPath))
		if err != nil {
			return nil, err
		}
	} else {
		cfg = &config.PackConfig{Window: config.DefaultWindow()}
	}

	if mode, err := modeFromFlags(flags); err != nil {
		return nil, err
	} else if mode != nil {
		cfg.Mode = mode
	}

	if flags.output != "" {
		cfg.Output = flags.output
	}
	if flags.title != "" {
		cfg.Title = flags.title
	}
	if flags.width > 0 {
		cfg.Window.Width = flags.width
	}
	if flags.height > 0 {
		cfg.Window.Height = flags.height
	}
	if flags.icon != "" {
		cfg.Icon = flags.icon
	}
	if flags.compression != "" {
		cfg.Compression.Codec = flags.compression
	}
	if cmd.Flags().Changed("level") {
		cfg.Compression.Level = flags.level
	}

	return cfg, nil
}

func modeFromFlags(flags *packFlags) (config.PackMode, error) {
	hasURL := flags.url != ""
	hasFrontend := flags.frontend != ""
	hasBackend := flags.backendEntry != "" || flags.backendKind != ""

	switch {
	case !hasURL && !hasFrontend && !hasBackend:
		return nil, nil // mode comes from the manifest
	case hasURL && (hasFrontend || hasBackend):
		return nil, fmt.Errorf("%w: --url conflicts with --frontend/--backend-entry", config.ErrInvalidConfig)
	case hasURL:
		return config.URLMode{URL: flags.url}, nil
	case hasBackend && !hasFrontend:
		return nil, fmt.Errorf("%w: a backend requires --frontend", config.ErrInvalidConfig)
	case hasBackend:
		kind, err := config.ParseBackendKind(flags.backendKind)
		if err != nil {
			return nil, err
		}
		if flags.backendEntry == "" {
			return nil, fmt.Errorf("%w: --backend-kind requires --backend-entry", config.ErrInvalidConfig)
		}
		if _, err := os.Stat(flags.backendEntry); err != nil {
			return nil, fmt.Errorf("%w: backend entry %s: %v", config.ErrInvalidConfig, flags.backendEntry, err)
		}
		return config.FullStackMode{
			Frontend: config.FrontendMode{Path: flags.frontend, Index: flags.index},
			Backend: config.Backend{
				Kind:  kind,
				Entry: flags.backendEntry,
				Args:  flags.backendArgs,
			},
		}, nil
	default:
		return config.FrontendMode{Path: flags.frontend, Index: flags.index}, nil
	}
}
