package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"FactorPulse/internal/board"
	"FactorPulse/internal/calculator"
	"FactorPulse/internal/model"
	"FactorPulse/internal/ranking"
	"FactorPulse/internal/render"
	"FactorPulse/internal/rotation"
)

var errBadParam = errors.New("bad parameter")

// Handler provides HTTP handlers for the board endpoints.
type Handler struct {
	board     *board.Service
	refresher Refresher
	defaults  Defaults
	log       zerolog.Logger
}

// NewHandler creates a new board handler.
func NewHandler(b *board.Service, refresher Refresher, defaults Defaults, log zerolog.Logger) *Handler {
	if !defaults.Horizon.Valid() {
		defaults.Horizon = model.Horizon1D
	}
	if defaults.TopN <= 0 {
		defaults.TopN = 5
	}
	if !defaults.XHorizon.Valid() {
		defaults.XHorizon = model.Horizon1M
	}
	if !defaults.YHorizon.Valid() {
		defaults.YHorizon = model.Horizon3M
	}
	return &Handler{
		board:     b,
		refresher: refresher,
		defaults:  defaults,
		log:       log.With().Str("handler", "board").Logger(),
	}
}

// HandleHealth handles GET /health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleListFactors handles GET /api/factors
func (h *Handler) HandleListFactors(w http.ResponseWriter, r *http.Request) {
	factors, err := h.board.Factors(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, factors)
}

// HandleGetFactor handles GET /api/factors/{id}
func (h *Handler) HandleGetFactor(w http.ResponseWriter, r *http.Request) {
	id, err := factorID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	rec, err := h.board.Factor(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

// HandleGetSparkline handles GET /api/factors/{id}/sparkline
func (h *Handler) HandleGetSparkline(w http.ResponseWriter, r *http.Request) {
	sv, err := h.sparkline(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sv)
}

// HandleGetSparklinePNG handles GET /api/factors/{id}/sparkline.png
func (h *Handler) HandleGetSparklinePNG(w http.ResponseWriter, r *http.Request) {
	sv, err := h.sparkline(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	scale, err := intParam(r, "scale", render.DefaultScale)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if scale < 1 || scale > 16 {
		h.writeError(w, fmt.Errorf("%w: scale must be between 1 and 16", errBadParam))
		return
	}
	img, err := render.SparklinePNG(sv.Sparkline, sv.Box, scale)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writePNG(w, img)
}

func (h *Handler) sparkline(r *http.Request) (*board.SparklineView, error) {
	id, err := factorID(r)
	if err != nil {
		return nil, err
	}
	horizon, err := horizonParam(r, "horizon", h.defaults.Horizon)
	if err != nil {
		return nil, err
	}
	box := calculator.DefaultBox
	if box.Width, err = floatParam(r, "width", box.Width); err != nil {
		return nil, err
	}
	if box.Height, err = floatParam(r, "height", box.Height); err != nil {
		return nil, err
	}
	if box.Padding, err = floatParam(r, "padding", box.Padding); err != nil {
		return nil, err
	}
	return h.board.Sparkline(r.Context(), id, horizon, box)
}

// HandleGetRankings handles GET /api/rankings
func (h *Handler) HandleGetRankings(w http.ResponseWriter, r *http.Request) {
	horizon, err := horizonParam(r, "horizon", h.defaults.Horizon)
	if err != nil {
		h.writeError(w, err)
		return
	}
	n, err := intParam(r, "n", h.defaults.TopN)
	if err != nil {
		h.writeError(w, err)
		return
	}
	rankings, err := h.board.Rankings(r.Context(), horizon, n)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rankings)
}

func (h *Handler) rotation(r *http.Request) (*rotation.View, error) {
	x, err := horizonParam(r, "x", h.defaults.XHorizon)
	if err != nil {
		return nil, err
	}
	y, err := horizonParam(r, "y", h.defaults.YHorizon)
	if err != nil {
		return nil, err
	}
	return h.board.Rotation(r.Context(), x, y)
}

// HandleGetRotation handles GET /api/rotation
func (h *Handler) HandleGetRotation(w http.ResponseWriter, r *http.Request) {
	view, err := h.rotation(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// HandleGetRotationPNG handles GET /api/rotation.png
func (h *Handler) HandleGetRotationPNG(w http.ResponseWriter, r *http.Request) {
	view, err := h.rotation(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	size, err := intParam(r, "size", 800)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if size < 100 || size > 4000 {
		h.writeError(w, fmt.Errorf("%w: size must be between 100 and 4000", errBadParam))
		return
	}
	img, err := render.RotationPNG(view, size, size)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writePNG(w, img)
}

// HandleGetSummary handles GET /api/summary
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.board.Summary(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sum)
}

// HandleRefresh handles POST /api/refresh
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := h.refresher.Refresh(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"source":     snap.Source,
		"fetched_at": snap.FetchedAt,
		"factors":    len(snap.Records),
	})
}

func factorID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: factor id %q", errBadParam, raw)
	}
	return id, nil
}

func horizonParam(r *http.Request, name string, def model.Horizon) (model.Horizon, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return model.ParseHorizon(raw)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", errBadParam, name, raw)
	}
	return v, nil
}

func floatParam(r *http.Request, name string, def float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", errBadParam, name, raw)
	}
	return v, nil
}

// statusFor maps domain errors to HTTP status codes. Anything unrecognised
// came from loading the snapshot, so it is reported as a bad gateway.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadParam),
		errors.Is(err, model.ErrUnknownHorizon),
		errors.Is(err, ranking.ErrInvalidCount),
		errors.Is(err, rotation.ErrInvalidAxis),
		errors.Is(err, calculator.ErrInvalidBox),
		errors.Is(err, calculator.ErrInvalidSample),
		errors.Is(err, board.ErrInvalidType),
		errors.Is(err, render.ErrTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, board.ErrFactorNotFound),
		errors.Is(err, render.ErrNothingToDraw):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= 500 {
		h.log.Error().Err(err).Msg("request failed")
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handler) writePNG(w http.ResponseWriter, img []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "max-age=60")
	if _, err := w.Write(img); err != nil {
		h.log.Error().Err(err).Msg("Failed to write image")
	}
}
