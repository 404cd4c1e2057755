package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/critique/pkg/config"
	"github.com/platinummonkey/critique/pkg/observability"
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "critique",
		Short: "critique - a review aggregation API",
		Long: `critique serves a catalog of titles, categories and genres along with
user reviews, scores and comments.

Configuration comes from CRITIQUE_* environment variables, optionally layered
over a YAML file given with --config.`,
		Version:       observability.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML configuration file")

	load := func() (*config.Config, error) {
		if configPath != "" {
			return config.LoadFile(configPath)
		}
		return config.LoadConfig()
	}

	root.AddCommand(newServeCommand(load))
	root.AddCommand(newMigrateCommand(load))
	root.AddCommand(newCreateSuperuserCommand(load))

	return root
}

// configLoader resolves the configuration once flags are parsed
type configLoader func() (*config.Config, error)

func newLogger(cfg *config.Config) *observability.Logger {
	return observability.NewLogger(cfg.LogLevel(), os.Stdout)
}
