package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/uiprobe/internal/scenario"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the scenarios in run order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}
			all, err := scenario.Catalog(cfg)
			if err != nil {
				return err
			}
			for _, s := range all {
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", s.Name(), s.Description())
				if e, ok := s.(*scenario.Elements); ok {
					for i, cp := range e.Checkpoints {
						fmt.Fprintf(cmd.OutOrStdout(), "%-10s   %d. %s: %s\n", "", i+1, cp.Description, cp.Locator)
					}
				}
			}
			return nil
		},
	}
}
