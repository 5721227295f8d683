// Package plans exposes the plan log over HTTP.
package plans

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/thermogrid/core/planlog"
	"github.com/kilianp07/thermogrid/infra/logger"
)

// Config holds the HTTP API settings.
type Config struct {
	Addr string `json:"addr" yaml:"addr"`
	// Token, when set, must be sent as "Authorization: Bearer <token>".
	Token string `json:"token" yaml:"token"`
}

// SetDefaults applies the default listen address.
func (c *Config) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

// NewLogHandler returns an HTTP handler exposing plan records via
// GET /api/plans/logs. Supported filters are run_id, from_day, to_day and
// start/end as RFC 3339 timestamps.
func NewLogHandler(store planlog.Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		q, err := parseQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []planlog.Record{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

func parseQuery(r *http.Request) (planlog.Query, error) {
	v := r.URL.Query()
	q := planlog.Query{RunID: v.Get("run_id")}
	var err error
	if s := v.Get("from_day"); s != "" {
		if q.FromDay, err = strconv.Atoi(s); err != nil {
			return q, err
		}
	}
	if s := v.Get("to_day"); s != "" {
		if q.ToDay, err = strconv.Atoi(s); err != nil {
			return q, err
		}
	}
	if s := v.Get("start"); s != "" {
		if q.Start, err = time.Parse(time.RFC3339, s); err != nil {
			return q, err
		}
	}
	if s := v.Get("end"); s != "" {
		if q.End, err = time.Parse(time.RFC3339, s); err != nil {
			return q, err
		}
	}
	return q, nil
}

// NewMux routes the plan log and the Prometheus gatherer g.
func NewMux(store planlog.Store, token string, g prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/api/plans/logs", NewLogHandler(store, token))
	if g != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	}
	return mux
}

// Serve runs h on addr until ctx is canceled.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	log := logger.New("api")
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("api shutdown: %v", err)
		}
	}()
	log.Infof("listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
