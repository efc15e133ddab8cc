package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/RyanBlaney/sonido-catalog/internal/app"
	"github.com/RyanBlaney/sonido-catalog/internal/catalog"
	"github.com/RyanBlaney/sonido-catalog/internal/classify"
	"github.com/RyanBlaney/sonido-catalog/pkg/audio/common"
	"github.com/RyanBlaney/sonido-catalog/pkg/logging"
)

// errorResponse is the uniform error body
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// PingHandler reports liveness
type PingHandler struct{}

// NewPingHandler builds a new PingHandler
func NewPingHandler() *PingHandler {
	return &PingHandler{}
}

func (*PingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("The application is running!"))
}

// TracksHandler serves catalog reads
type TracksHandler struct {
	appCtx *app.Context
	logger logging.Logger
}

// NewTracksHandler builds a new TracksHandler
func NewTracksHandler(appCtx *app.Context) *TracksHandler {
	return &TracksHandler{
		appCtx: appCtx,
		logger: appCtx.Logger.WithFields(logging.Fields{
			"handler": "tracks",
		}),
	}
}

// tracksPage is the paginated track listing response
type tracksPage struct {
	Tracks     []catalog.Track `json:"tracks"`
	NextOffset *uint64         `json:"next_page_offset"`
}

// GetTracks handles GET /tracks with pagination and exact-match filters
func (h *TracksHandler) GetTracks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := parseUint32(q.Get("limit"), 15)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer", "")
		return
	}

	var offset *uint64
	if raw := q.Get("offset"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "offset must be a non-negative integer", "")
			return
		}
		offset = &v
	}

	filter := catalog.Filter{
		Artist: q.Get("artist_name"),
	}
	if genre := q.Get("genre"); genre != "" {
		if !classify.IsValidGenre(genre) {
			writeError(w, http.StatusBadRequest, "unknown genre "+strconv.Quote(genre), "")
			return
		}
		filter.Genre = genre
	}
	if filter.ListensLower, err = parseOptionalInt(q.Get("track_listens_lower_bound")); err != nil {
		writeError(w, http.StatusBadRequest, "track_listens_lower_bound must be an integer", "")
		return
	}
	if filter.ListensUpper, err = parseOptionalInt(q.Get("track_listens_upper_bound")); err != nil {
		writeError(w, http.StatusBadRequest, "track_listens_upper_bound must be an integer", "")
		return
	}

	tracks, next, err := h.appCtx.Catalog.GetTracks(r.Context(), offset, limit, filter)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if tracks == nil {
		tracks = []catalog.Track{}
	}

	writeJSON(w, http.StatusOK, tracksPage{Tracks: tracks, NextOffset: next})
}

// GetTrackByID handles GET /tracks/{track_id}
func (h *TracksHandler) GetTrackByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["track_id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "track_id must be a non-negative integer", "")
		return
	}

	track, err := h.appCtx.Catalog.GetTrackByID(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, track)
}

// GetSimilarTracks handles GET /tracks/similar
func (h *TracksHandler) GetSimilarTracks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	id, err := strconv.ParseUint(q.Get("track_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "track_id must be a non-negative integer", "")
		return
	}

	limit, err := parseUint32(q.Get("number_of_similar_tracks"), 10)
	if err != nil || limit < 1 {
		writeError(w, http.StatusBadRequest, "number_of_similar_tracks must be a positive integer", "")
		return
	}

	filter := catalog.Filter{Artist: q.Get("artist_name")}

	similar, err := h.appCtx.Catalog.MostSimilarByID(r.Context(), id, uint64(limit), filter)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if similar == nil {
		similar = []catalog.ScoredTrack{}
	}

	writeJSON(w, http.StatusOK, similar)
}

func (h *TracksHandler) writeServiceError(w http.ResponseWriter, err error) {
	writeServiceError(w, h.logger, err)
}

// UploadHandler serves the classify-and-search upload flow
type UploadHandler struct {
	appCtx *app.Context
	logger logging.Logger
}

// NewUploadHandler builds a new UploadHandler
func NewUploadHandler(appCtx *app.Context) *UploadHandler {
	return &UploadHandler{
		appCtx: appCtx,
		logger: appCtx.Logger.WithFields(logging.Fields{
			"handler": "upload",
		}),
	}
}

// UploadTrack handles POST /tracks/upload: one MPEG audio file in a
// multipart form, classified and matched against the catalog.
func (h *UploadHandler) UploadTrack(w http.ResponseWriter, r *http.Request) {
	cfg := h.appCtx.Config
	r.Body = http.MaxBytesReader(w, r.Body, cfg.Server.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required", "")
		return
	}
	defer file.Close()

	if contentType := header.Header.Get("Content-Type"); contentType != "audio/mpeg" {
		writeError(w, http.StatusBadRequest, "only audio/mpeg (MP3) files are allowed", "")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read uploaded file", "")
		return
	}

	result, err := h.appCtx.Pipeline.ProcessUpload(r.Context(), data,
		cfg.Pipeline.TopGenres, cfg.Pipeline.TopSimilar)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// PlaylistHandler serves playlist enrichment
type PlaylistHandler struct {
	appCtx *app.Context
	logger logging.Logger
}

// NewPlaylistHandler builds a new PlaylistHandler
func NewPlaylistHandler(appCtx *app.Context) *PlaylistHandler {
	return &PlaylistHandler{
		appCtx: appCtx,
		logger: appCtx.Logger.WithFields(logging.Fields{
			"handler": "playlist",
		}),
	}
}

type enrichRequest struct {
	TrackIDs []uint64 `json:"track_ids"`
}

// Enrich handles POST /playlist/enrich
func (h *PlaylistHandler) Enrich(w http.ResponseWriter, r *http.Request) {
	var req enrichRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be JSON with a track_ids array", "")
		return
	}
	if len(req.TrackIDs) == 0 {
		writeError(w, http.StatusBadRequest, "track_ids must not be empty", "")
		return
	}

	playlist, err := h.appCtx.Enricher.Enrich(r.Context(), req.TrackIDs)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, playlist)
}

// writeServiceError maps service errors onto HTTP statuses: bad input is
// 4xx, a missing track is 404; schema and artifact faults stay 500 and are
// logged loudly because they mean a broken deployment.
func writeServiceError(w http.ResponseWriter, logger logging.Logger, err error) {
	switch {
	case errors.Is(err, catalog.ErrTrackNotFound):
		writeError(w, http.StatusNotFound, "track not found", "")
	case common.IsClientError(err):
		writeError(w, http.StatusBadRequest, err.Error(), common.ErrorCode(err))
	default:
		logger.Error("request failed", logging.Fields{
			"error": err.Error(),
			"code":  common.ErrorCode(err),
		})
		writeError(w, http.StatusInternalServerError, "internal error", common.ErrorCode(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

func parseUint32(raw string, fallback uint32) (uint32, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func parseOptionalInt(raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
