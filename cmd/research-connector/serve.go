// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-connector/internal/recommend"
	"github.com/pdiddy/research-connector/internal/search"
	"github.com/pdiddy/research-connector/internal/server"
	"github.com/pdiddy/research-connector/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve runs the HTTP API used by the web client: the embedding proxy,
semantic search, topics, recommendations, drill-downs and contact drafts,
plus /healthz, /readyz and /metrics. The caller's identity is read from the
X-User-Id, X-User-Email and X-User-Name headers set by the auth gateway.

The server drains in-flight requests on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from server.addr, :8080)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := app.cfg
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	embedder, err := openEmbedder(cfg)
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := server.New(server.Deps{
		Search: search.New(search.Deps{
			Embedder:  embedder,
			Papers:    st,
			Activity:  st,
			Logger:    app.log,
			Metrics:   app.metrics,
			Config:    cfg.Search,
			Dimension: cfg.Embedding.Dimension,
		}),
		Recommend: recommend.New(recommend.Deps{
			Store:    st,
			Activity: st,
			Logger:   app.log,
			Config:   cfg.Recommend,
		}),
		Embedder: embedder,
		Backend:  st,
		Metrics:  app.metrics,
		Logger:   app.log,
		Tracker:  session.NewTrackerSize(cfg.Server.SessionCacheSize),
		Config:   cfg.Server,
	})
	defer srv.Close()

	return srv.Run(ctx)
}
