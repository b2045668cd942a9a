package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"insureadmin/internal/seed"
)

func newSeedCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Validate and apply seed documents",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "validate [file]",
			Short: "Check a seed document; without a file the built-in one is checked",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				f, err := loadSeed(args)
				if err != nil {
					return err
				}
				ds, err := f.Dataset()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok: %d benefits, %d policies, %d members, %d claims, %d users\n",
					len(ds.Benefits), len(ds.Policies), len(ds.Members), len(ds.Claims), len(f.Users))
				return nil
			},
		},
		&cobra.Command{
			Use:   "apply [file]",
			Short: "Write a seed document to the configured backend",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				f, err := loadSeed(args)
				if err != nil {
					return err
				}
				ds, err := f.Dataset()
				if err != nil {
					return err
				}
				gw, closeFn, err := openGateway(cmd.Context(), v)
				if err != nil {
					return err
				}
				defer closeFn()
				if err := ds.Apply(cmd.Context(), gw); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "applied %d benefits, %d policies, %d members, %d claims\n",
					len(ds.Benefits), len(ds.Policies), len(ds.Members), len(ds.Claims))
				return nil
			},
		},
	)
	return cmd
}

func loadSeed(args []string) (*seed.File, error) {
	if len(args) == 0 {
		return seed.Default(), nil
	}
	return seed.LoadFile(args[0])
}
