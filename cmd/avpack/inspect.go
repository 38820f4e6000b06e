package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/auroraview/avpack/pkg/codec"
	"github.com/auroraview/avpack/pkg/config"
	"github.com/auroraview/avpack/pkg/extract"
	"github.com/auroraview/avpack/pkg/overlay"
	"github.com/auroraview/avpack/pkg/shellwords"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "Describe the overlay carried by a packed executable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := overlay.DetectFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if container == nil {
				fmt.Fprintln(out, "no overlay: plain shell executable")
				return nil
			}

			major, minor := overlay.DecodeVersion(container.Version)
			fmt.Fprintf(out, "overlay version: %d.%d\n", major, minor)
			fmt.Fprintf(out, "shell size:      %d bytes\n", container.Offset)
			fmt.Fprintf(out, "sections:        %d\n", len(container.Sections))

			payload := &config.Payload{}
			if err := json.Unmarshal(container.Config, payload); err != nil {
				return fmt.Errorf("%w: config block does not parse: %v", overlay.ErrMalformedOverlay, err)
			}
			fmt.Fprintf(out, "title:           %s\n", payload.Title)
			fmt.Fprintf(out, "mode:            %s\n", payload.Mode.Type)
			if payload.Mode.URL != "" {
				fmt.Fprintf(out, "url:             %s\n", payload.Mode.URL)
			}
			if b := payload.Mode.Backend; b != nil {
				fmt.Fprintf(out, "backend:         %s %s\n", b.Kind, b.Entry)
				if b.Args != "" {
					if words, err := shellwords.Split(b.Args); err == nil {
						fmt.Fprintf(out, "backend args:    %s\n", shellwords.Join(words))
					}
				}
			}
			fmt.Fprintf(out, "codec:           %s\n", payload.Compression.Codec)
			fmt.Fprintf(out, "content hash:    %s\n", payload.ContentHash)

			for _, sec := range container.Sections {
				fmt.Fprintf(out, "  %-40s %8d -> %8d bytes  %016x\n",
					sec.Path, sec.Size, len(sec.Compressed), sec.Checksum)
			}
			return nil
		},
	}
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify FILE",
		Short: "Decode every section and check its checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := overlay.DetectFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if container == nil {
				fmt.Fprintln(out, "no overlay: nothing to verify")
				return nil
			}

			payload := &config.Payload{}
			if err := json.Unmarshal(container.Config, payload); err != nil {
				return fmt.Errorf("%w: config block does not parse: %v", overlay.ErrMalformedOverlay, err)
			}
			c, err := codec.Get(payload.Compression.Codec)
			if err != nil {
				return err
			}

			for _, sec := range container.Sections {
				if _, err := overlay.DecodeSection(sec, c); err != nil {
					return err
				}
				fmt.Fprintf(out, "ok %s\n", sec.Path)
			}
			fmt.Fprintf(out, "verified %d sections\n", len(container.Sections))
			return nil
		},
	}
}

func newExtractCmd(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "extract FILE DIR",
		Short: "Extract a packed executable's assets into a session under DIR",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := overlay.DetectFile(args[0])
			if err != nil {
				return err
			}
			if container == nil {
				return fmt.Errorf("%s carries no overlay", args[0])
			}

			m, err := extract.Extract(ctx, container, extract.Options{Root: args[1]})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "extracted %d files to %s\n", len(m.Files), m.Root)
			return nil
		},
	}
}
