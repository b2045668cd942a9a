// Package cli implements consolectl, the operator tool for the console's
// data: password hashing, seed documents and catalog inspection.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"insureadmin/internal/gateway"
	gwmetrics "insureadmin/internal/gateway/metrics"
	"insureadmin/internal/gateway/transport"
	"insureadmin/internal/platform/config"
	"insureadmin/internal/platform/postgres"
)

const envPrefix = "INSUREADMIN"

// Execute runs consolectl with the process arguments.
func Execute() error {
	return NewRootCommand(viper.New()).Execute()
}

// NewRootCommand builds the command tree against v. Configuration hierarchy,
// highest first: flags, INSUREADMIN_* environment, config file, defaults.
func NewRootCommand(v *viper.Viper) *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "consolectl",
		Short: "Operator tool for the insurance administration console",
		Long: `consolectl manages the data behind the insurance administration console.

It hashes operator passwords for seed files, validates and applies seed
documents, and lists the policy catalog from a running backend.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(v, cfgFile)
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.insureadmin/config.yaml)")
	root.PersistentFlags().String("backend-url", "", "REST backend base URL")
	root.PersistentFlags().String("database-url", "", "Postgres document store URL")
	root.PersistentFlags().String("token", "", "backend bearer token")
	root.PersistentFlags().Duration("timeout", 10*time.Second, "backend call timeout")
	_ = v.BindPFlag("backend_url", root.PersistentFlags().Lookup("backend-url"))
	_ = v.BindPFlag("database_url", root.PersistentFlags().Lookup("database-url"))
	_ = v.BindPFlag("token", root.PersistentFlags().Lookup("token"))
	_ = v.BindPFlag("timeout", root.PersistentFlags().Lookup("timeout"))

	root.AddCommand(
		newHashPasswordCommand(),
		newSeedCommand(v),
		newPoliciesCommand(v),
	)
	return root
}

func initConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home + "/.insureadmin")
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// openGateway connects to the configured backend. The returned closer
// releases it.
func openGateway(ctx context.Context, v *viper.Viper) (*gateway.Gateway, func(), error) {
	opts := []gateway.Option{
		gateway.WithMetrics(gwmetrics.NewWithRegistry(prometheus.NewRegistry())),
		gateway.WithTimeout(v.GetDuration("timeout")),
	}
	if url := v.GetString("database_url"); url != "" {
		db, err := postgres.Open(ctx, config.DatabaseConfig{URL: url, MaxOpenConns: 4})
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return gateway.New(transport.NewPostgres(db), opts...), func() { _ = db.Close() }, nil
	}
	if url := v.GetString("backend_url"); url != "" {
		token := v.GetString("token")
		backend := transport.NewHTTP(url, transport.WithTokenSource(func(context.Context) string { return token }))
		return gateway.New(backend, opts...), func() {}, nil
	}
	return nil, nil, fmt.Errorf("one of --database-url or --backend-url is required")
}
