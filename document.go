package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"visor-api/shell"
)

func documentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "document",
		Short: "Read or replace the whole document, as the desktop shell does",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "load",
		Short: "Print the stored document, or null when none exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			rt := newRuntime(cfg)
			defer rt.Close()

			data, err := shell.NewBridge(rt.docs).LoadDocument(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), data)
			return err
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "save",
		Short: "Replace the stored document with JSON read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			rt := newRuntime(cfg)
			defer rt.Close()

			return shell.NewBridge(rt.docs).SaveDocument(cmd.Context(), string(data))
		},
	})
	return cmd
}
