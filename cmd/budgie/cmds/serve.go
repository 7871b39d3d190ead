package cmds

import (
	"budgie/internal/api"
	"budgie/internal/backends"
	"budgie/internal/backends/memory"
	"budgie/internal/flow"
	"budgie/internal/metrics"
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	port        int
	catalogFile string
	configsFile string
}

func newServeCmd() *cobra.Command {
	opts := serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the broker HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("port") {
				opts.port = envPort()
			}
			if opts.configsFile == "" {
				opts.configsFile = os.Getenv(ConfigsFileKey)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts)
		},
	}
	cmd.Flags().IntVar(&opts.port, "port", DefaultPort, "listen port (defaults to $PORT)")
	cmd.Flags().StringVar(&opts.catalogFile, "catalog-file", "", "catalog file (defaults to $CATALOG / $CATALOG_FILE)")
	cmd.Flags().StringVar(&opts.configsFile, "configs", "", "configurations file loaded at startup (defaults to $CONFIGS_FILE)")
	return cmd
}

// NewHandler wires the stores, the orchestrator and the event publisher behind the HTTP handler.
func NewHandler(ctx context.Context, catalogFile, configsFile string) (*api.Handler, error) {
	catalog, err := LoadCatalog(catalogFile)
	if err != nil {
		return nil, err
	}
	publisher, err := backends.PublisherFromEnv(ctx)
	if err != nil {
		return nil, err
	}
	m := metrics.NewMetrics()
	behavior := flow.NewBehavior(memory.NewConfigStore(), catalog)
	if configsFile != "" {
		if err := PutConfigs(ctx, behavior, configsFile); err != nil {
			return nil, err
		}
	}
	orch := flow.NewOrchestrator(behavior, memory.NewInstanceStore(), memory.NewTaskStore(), publisher, m)
	return api.NewHandler(orch, catalog, m), nil
}

func serve(ctx context.Context, opts serveOptions) error {
	h, err := NewHandler(ctx, opts.catalogFile, opts.configsFile)
	if err != nil {
		return err
	}
	stopCh, doneCh := api.RunServerInterruptible(opts.port, h)
	select {
	case err := <-doneCh:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		stopCh <- struct{}{}
		return <-doneCh
	}
}
