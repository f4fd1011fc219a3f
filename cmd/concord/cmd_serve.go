package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-concord/infrastructure/storage"
	"github.com/ahrav/go-concord/infrastructure/viewer"
	"github.com/ahrav/go-concord/internal/application"
)

func newServeCommand(global *globalOptions) *cobra.Command {
	var configPath, addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Browse stored runs in a web viewer",
		Long: `Start the results viewer. It lists stored run summaries, shows every
response next to its prompt and renders the pairwise similarity grid.

The viewer reads from the storage backend and prompts directory named in the
config file. It listens on viewer.addr unless --addr is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := application.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Viewer.Addr
			}

			ctx := cmd.Context()
			store, err := storage.New(ctx, cfg.Storage)
			if err != nil {
				return err
			}
			if err := store.Ensure(ctx); err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			srv, err := viewer.New(viewer.Config{
				Addr:    addr,
				Store:   store,
				Prompts: application.PromptDirectory(cfg.PromptsDir),
				Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
				Logger:  global.logger,
			})
			if err != nil {
				return err
			}
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides viewer.addr)")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}
