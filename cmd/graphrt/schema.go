package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hanpama/graphrt/internal/config"
	"github.com/hanpama/graphrt/internal/schema"
)

func newSchemaCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the merged SDL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			sch, err := schema.LoadFiles(cfg.Schema.Paths...)
			if err != nil {
				return fmt.Errorf("load schema: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), schema.Render(sch))
			return nil
		},
	}
}
