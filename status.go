package main

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"visor-api/domain"
)

func statusCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show task, project and pending counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			rt := newRuntime(cfg)
			defer rt.Close()

			doc, err := rt.docs.Read(cmd.Context())
			if err != nil {
				return err
			}
			summary := domain.Summarize(doc)
			out := cmd.OutOrStdout()
			if asJSON {
				data, err := sonic.Marshal(summary)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			}
			fmt.Fprintf(out, "Tasks:    %d\n", summary.Tasks)
			fmt.Fprintf(out, "Projects: %d\n", summary.Projects)
			fmt.Fprintf(out, "Pending:  %d\n", summary.Pending)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "output as JSON")
	return cmd
}
