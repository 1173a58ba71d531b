package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func rulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the active extraction rules in priority order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			provider, err := buildProvider(globalConfig.Data)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(provider.Rules()); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
