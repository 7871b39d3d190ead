package cmds

import (
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

// NewRootCmd builds the command tree. Environment and logging are set up before any subcommand runs.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "budgie",
		Short: "Configurable service broker simulator",
		Long: `budgie is a service broker that simulates provisioning and binding. Operators configure
per tenant latency, asynchronous completion and failure injection to exercise broker clients.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loadEnv()
			return setupLogging()
		},
	}
	root.SetVersionTemplate(`{{printf "budgie version %s\n" .Version}}`)
	root.AddCommand(newServeCmd(), newConfigCmd(), newCatalogCmd())
	return root
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadEnv loads the .env file named by ENV_FILE, if present.
func loadEnv() {
	envFile := getenv(EnvFileKey, ".env")
	if err := godotenv.Load(envFile); err != nil {
		log.Debugf("env file %s not loaded", envFile)
	}
}

// setupLogging applies LOG_LEVEL and LOG_FORMAT.
func setupLogging() error {
	level, err := log.ParseLevel(getenv(LogLevelKey, "info"))
	if err != nil {
		return err
	}
	log.SetLevel(level)
	if getenv(LogFormatKey, "text") == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
