package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/RyanBlaney/sonido-catalog/internal/app"
	"github.com/RyanBlaney/sonido-catalog/pkg/logging"
)

// Server is the HTTP API for the track catalog
type Server struct {
	appCtx *app.Context
	http   *http.Server
	logger logging.Logger
}

// New creates the API server with all routes registered
func New(appCtx *app.Context) *Server {
	logger := appCtx.Logger.WithFields(logging.Fields{
		"component": "http_server",
	})

	router := mux.NewRouter()
	router.Handle("/ping", NewPingHandler()).Methods(http.MethodGet)

	tracks := NewTracksHandler(appCtx)
	router.HandleFunc("/tracks", tracks.GetTracks).Methods(http.MethodGet)
	router.HandleFunc("/tracks/similar", tracks.GetSimilarTracks).Methods(http.MethodGet)
	router.HandleFunc("/tracks/{track_id:[0-9]+}", tracks.GetTrackByID).Methods(http.MethodGet)

	upload := NewUploadHandler(appCtx)
	router.HandleFunc("/tracks/upload", upload.UploadTrack).Methods(http.MethodPost)

	playlist := NewPlaylistHandler(appCtx)
	router.HandleFunc("/playlist/enrich", playlist.Enrich).Methods(http.MethodPost)

	cfg := appCtx.Config.Server
	return &Server{
		appCtx: appCtx,
		logger: logger,
		http: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

// ListenAndServe blocks serving the API until Shutdown or failure
func (s *Server) ListenAndServe() error {
	s.logger.Info("starting HTTP server", logging.Fields{
		"addr": s.http.Addr,
	})
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.http.Shutdown(ctx)
}

// Handler exposes the routed handler for in-process testing
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}
