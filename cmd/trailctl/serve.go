package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/breadcrumb/ancestry"
	"github.com/jonwraymond/breadcrumb/health"
	"github.com/jonwraymond/breadcrumb/internal/wikihost"
	"github.com/jonwraymond/breadcrumb/observe"
	"github.com/jonwraymond/breadcrumb/page"
)

// maxPageBytes bounds a saved page body.
const maxPageBytes = 1 << 20

func newServeCmd(state *cliState) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve rendered fixture pages and health endpoints over HTTP",
		Long: `Serve exposes:

  GET  /wiki/{title}   rendered page
  PUT  /wiki/{title}   save the request body as the page content
  GET  /new            preload text for a new page
  GET  /healthz, /readyz, /health
  GET  /metrics        when observe.metrics is prometheus`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := state.app
			if listen == "" {
				listen = a.cfg.Server.Listen
			}
			return a.serve(cmd.Context(), listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default server.listen)")
	return cmd
}

func (a *app) serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info(ctx, "serving breadcrumbs", observe.Field{Key: "addr", Value: addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *app) routes() http.Handler {
	mux := http.NewServeMux()
	health.RegisterHandlers(mux, a.health)
	if h := a.metricsHandler(); h != nil {
		mux.Handle("GET /metrics", h)
	}

	mux.HandleFunc("GET /wiki/{title...}", func(w http.ResponseWriter, r *http.Request) {
		out, err := a.wiki.Render(r.Context(), r.PathValue("title"))
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, out)
	})

	mux.HandleFunc("PUT /wiki/{title...}", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPageBytes))
		if err != nil {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		if _, err := a.wiki.Save(r.Context(), r.PathValue("title"), string(body)); err != nil {
			a.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /new", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, a.wiki.NewPageText())
	})

	return mux
}

func (a *app) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, wikihost.ErrPageNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, page.ErrInvalidTitle):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ancestry.ErrCacheUnavailable):
		http.Error(w, "page saved; breadcrumb store unavailable", http.StatusServiceUnavailable)
	default:
		a.logger.Error(r.Context(), "request failed",
			observe.Field{Key: "path", Value: r.URL.Path},
			observe.Field{Key: "error", Value: err.Error()},
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
