package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/weppcloud/gldash/internal/dashboard"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard core over HTTP",
	Long: `Initialise the dashboard once and expose its state, layer stack,
legends and graph over HTTP. Every façade function is callable as
POST /actions/<name> with a JSON array of arguments.

Examples:
  gldash serve --addr :8080
  curl -X POST localhost:8080/actions/glDashboardSetLayerVisible -d '["wepp:soil_loss", true]'`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	reg := prometheus.NewRegistry()
	dash, log, cleanup, err := setup(reg)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := dash.Init(cmd.Context()); err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              serveAddr,
		Handler:           newServer(dash, reg, log).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info().Str("addr", serveAddr).Msg("serving")
	return srv.ListenAndServe()
}

type server struct {
	dash     *dashboard.Dashboard
	bindings map[string]dashboard.Handler
	reg      *prometheus.Registry
	actions  *prometheus.CounterVec
	log      zerolog.Logger
}

func newServer(dash *dashboard.Dashboard, reg *prometheus.Registry, log zerolog.Logger) *server {
	actions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gldash",
		Name:      "actions_total",
		Help:      "Façade calls served over HTTP by action and outcome.",
	}, []string{"action", "outcome"})
	reg.MustRegister(actions)
	return &server{dash: dash, bindings: dash.Bindings(), reg: reg, actions: actions, log: log}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { respondJSON(w, map[string]string{"status": "ok"}) })
	r.Get("/state", func(w http.ResponseWriter, r *http.Request) { respondJSON(w, s.dash.Store().Get()) })
	r.Get("/layers", func(w http.ResponseWriter, r *http.Request) { respondJSON(w, s.dash.Layers()) })
	r.Get("/legends", s.handleLegends)
	r.Get("/graph", func(w http.ResponseWriter, r *http.Request) { respondJSON(w, s.dash.GraphView()) })
	r.Get("/graph.svg", s.handleGraphSVG)
	r.Post("/actions/{name}", s.handleAction)
	r.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	return r
}

func (s *server) handleLegends(w http.ResponseWriter, r *http.Request) {
	html, err := s.dash.UpdateLegends()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, html)
}

func (s *server) handleGraphSVG(w http.ResponseWriter, r *http.Request) {
	svg, err := s.dash.GraphSVG()
	if err != nil {
		respondError(w, http.StatusNotFound, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = io.WriteString(w, svg)
}

func (s *server) handleAction(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	h, ok := s.bindings[name]
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Errorf("unknown action %q", name))
		return
	}

	var args []any
	if r.ContentLength != 0 {
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&args); err != nil && !errors.Is(err, io.EOF) {
			s.actions.WithLabelValues(name, "bad_request").Inc()
			respondError(w, http.StatusBadRequest, fmt.Errorf("decode arguments: %w", err))
			return
		}
	}

	result, err := s.call(r, h, args)
	switch {
	case errors.Is(err, dashboard.ErrArgs), errors.Is(err, errMisuse):
		s.actions.WithLabelValues(name, "bad_request").Inc()
		respondError(w, http.StatusBadRequest, err)
	case err != nil:
		s.actions.WithLabelValues(name, "error").Inc()
		respondError(w, http.StatusUnprocessableEntity, err)
	default:
		s.actions.WithLabelValues(name, "ok").Inc()
		respondJSON(w, result)
	}
}

var errMisuse = errors.New("invalid call")

// call turns a panic from an unknown mode or statistic into an error.
func (s *server) call(r *http.Request, h dashboard.Handler, args []any) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			s.log.Warn().Interface("panic", p).Msg("action rejected")
			err = fmt.Errorf("%w: %v", errMisuse, p)
		}
	}()
	return h(r.Context(), args)
}

func respondJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": err.Error(), "status": status})
}
