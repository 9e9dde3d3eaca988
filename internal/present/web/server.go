package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/transit-board/internal/common/config"
	"github.com/transit-board/internal/common/logger"
	"github.com/transit-board/internal/present/led"
	"github.com/transit-board/internal/refresh"
	"github.com/transit-board/pkg/transit/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server serves the board. Every page request runs one refresh cycle, so
// the page's own auto-refresh is the polling trigger.
type Server struct {
	refresher   *refresh.Refresher
	sources     []models.Source
	metraRoute  string
	ledRows     []config.LEDRow
	pageRefresh time.Duration
	logger      logger.Logger
	templates   *template.Template
	server      *http.Server
}

func NewServer(cfg *config.Config, r *refresh.Refresher, log logger.Logger) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		refresher:   r,
		sources:     cfg.Sources,
		metraRoute:  cfg.Metra.RouteID,
		ledRows:     cfg.LED.Lines,
		pageRefresh: cfg.Server.PageRefresh,
		logger:      log,
		templates:   tmpl,
	}
	s.server = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.instrument)

	r.HandleFunc("/", s.handleBoard).Methods(http.MethodGet)
	r.HandleFunc("/led", s.handleLED).Methods(http.MethodGet)
	r.HandleFunc("/api/board", s.handleBoardJSON).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("Server shut down successfully")
	return nil
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	snap := s.refresher.Cycle(r.Context(), nil)
	s.render(w, "board.html", newBoardView(snap, s.sources, s.metraRoute, s.refresher.Location(), s.pageRefresh))
}

func (s *Server) handleLED(w http.ResponseWriter, r *http.Request) {
	snap := s.refresher.Cycle(r.Context(), nil)
	frame := led.BuildFrame(snap, s.ledRows, s.refresher.Location())
	s.render(w, "led.html", ledView{
		RefreshSeconds: int(s.pageRefresh.Seconds()),
		Rows:           frame.Rows(),
	})
}

func (s *Server) handleBoardJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.refresher.Cycle(r.Context(), nil)
	writeJSON(w, http.StatusOK, snap)
}

type healthResponse struct {
	Status    string                `json:"status"`
	State     string                `json:"state"`
	LastCycle *time.Time            `json:"last_cycle,omitempty"`
	Sources   []models.SourceStatus `json:"sources,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", State: s.refresher.State().String()}
	if last, ok := s.refresher.Last(); ok {
		resp.LastCycle = &last.GeneratedAt
		resp.Sources = last.Sources
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) render(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("Template render failed", "template", name, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
