// Package commands defines all Cobra CLI commands for the catalograg binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/catalograg-go/internal/audit"
	"github.com/54b3r/catalograg-go/internal/config"
	"github.com/54b3r/catalograg-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// envFile holds the --env-file flag value.
var envFile string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "catalograg",
		Short: "Product catalogue retrieval-augmented answering",
		Long: `catalograg indexes a MongoDB product catalogue into a vector index and
answers shopper questions grounded in the closest products.

  catalograg etl      load every product into the vector index
  catalograg serve    start the POST /ask HTTP server

Settings come from the environment, a .env file and an optional YAML config
file (~/.catalograg/config.yaml). Environment variables always win.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// .env first so YAML never overrides it, and env wins over both.
			if err := config.LoadDotEnv(envFile, log); err != nil {
				return err
			}
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			audit.LogCommandStart(cmd.Context(), log, cmd.CommandPath(), loadedConfigPath)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.catalograg/config.yaml)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a .env file; missing files are ignored")

	root.AddCommand(
		NewServeCmd(),
		NewETLCmd(),
		NewIndexCmd(),
		NewCheckCmd(),
		NewVersionCmd(),
	)

	return root
}
