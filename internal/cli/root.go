package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// globalFlags holds the persistent flags shared by every command.
var globalFlags struct {
	configPath string
	envFile    string
	verbose    bool
	logFormat  string
	backend    string
	dsn        string
	topology   string
}

var rootCmd = &cobra.Command{
	Use:   "clusterha",
	Short: "Resilient reads and writes against clustered databases",
	Long: `clusterha runs statements against a replica set or a sharded router tier
and keeps them working across failovers: dropped sockets trigger a single
shared reconnect with exponential backoff, router failures are waited out,
and a primary that stepped down is dropped before the next attempt.

Statements inside a transaction are never replayed. Writes outside a
transaction may be applied twice when a failure hides a successful
execution.

Configuration is read from clusterha.yaml, an optional .env file and
CLUSTERHA_* environment variables; flags override all of them.

Exit Codes:
  0  - Success
  1  - General error (statement failed)
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration or options
  11 - Cluster connection failed`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo(os.Stdout)
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&globalFlags.configPath, "config", "", "Path to the config file (default: ./clusterha.yaml)")
	flags.StringVar(&globalFlags.envFile, "env-file", "", "Path to a .env file (default: ./.env when present)")
	flags.BoolVarP(&globalFlags.verbose, "verbose", "v", false, "Enable verbose output for all commands")
	flags.StringVar(&globalFlags.logFormat, "log-format", "console", "Log format: console or json")
	flags.StringVar(&globalFlags.backend, "backend", "", "Database backend: postgres or redis")
	flags.StringVar(&globalFlags.dsn, "dsn", "", "Connection string, hosts separated by commas")
	flags.StringVar(&globalFlags.topology, "topology", "", "Cluster topology: replica_set or sharded")
}

func resetGlobalFlags() {
	globalFlags.configPath = ""
	globalFlags.envFile = ""
	globalFlags.verbose = false
	globalFlags.logFormat = "console"
	globalFlags.backend = ""
	globalFlags.dsn = ""
	globalFlags.topology = ""
}
