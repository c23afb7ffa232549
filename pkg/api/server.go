package api

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type Config struct {
	ListenAddr        string
	MetricsListenAddr string
	// PprofListenAddr is disabled when empty.
	PprofListenAddr string
}

// Background is a long running task started alongside the HTTP servers and
// stopped when the servers are.
type Background func(ctx context.Context) error

func newPprofServer(addr string) *http.Server {
	pprofMux := http.NewServeMux()

	pprofMux.HandleFunc("/debug/pprof/", pprof.Index)
	pprofMux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	pprofMux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	pprofMux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	pprofMux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	return &http.Server{
		Addr:    addr,
		Handler: pprofMux,
	}
}

// Serve runs the API, metrics and optional pprof servers plus any background
// tasks until ctx is cancelled or one of them fails.
func Serve(ctx context.Context, logger log.FieldLogger, cfg Config, deps Dependencies, background ...Background) error {
	servers := map[string]*http.Server{
		"HTTP API": {
			Addr:    cfg.ListenAddr,
			Handler: NewRouter(logger, rand.New(rand.NewSource(time.Now().Unix())), deps),
		},
		"Prometheus metrics": {
			Addr:    cfg.MetricsListenAddr,
			Handler: promhttp.Handler(),
		},
	}
	if cfg.PprofListenAddr != "" {
		servers["pprof"] = newPprofServer(cfg.PprofListenAddr)
	}

	g, ctx := errgroup.WithContext(ctx)
	for name, srv := range servers {
		name, srv := name, srv
		g.Go(func() error {
			logger.Infof("%s server listening on %s", name, srv.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Errorf("%s server exited", name)
				return fmt.Errorf("%s server error: %v", name, err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			logger.Infof("stopping %s server", name)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Warnf("got an error shutting down %s server", name)
			}
			return nil
		})
	}
	for _, task := range background {
		task := task
		g.Go(func() error {
			return task(ctx)
		})
	}

	return g.Wait()
}
