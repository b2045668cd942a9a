package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"insureadmin/internal/catalog/service"
)

func newPoliciesCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policies",
		Short: "Inspect the policy catalog",
	}
	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List policies from the configured backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			gw, closeFn, err := openGateway(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer closeFn()

			catalog, err := service.New(gw).List(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(catalog)
			}
			fmt.Fprintln(cmd.OutOrStdout(), service.Summarize(catalog))
			return nil
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "print the catalog as JSON")
	cmd.AddCommand(list)
	return cmd
}
