// Package board answers the factor dashboard queries over the current
// snapshot. Every query takes its horizons explicitly.
package board

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"FactorPulse/internal/calculator"
	"FactorPulse/internal/model"
	"FactorPulse/internal/ranking"
	"FactorPulse/internal/rotation"
)

var (
	// ErrFactorNotFound is returned when no factor matches an id or name.
	ErrFactorNotFound = errors.New("factor not found")
	// ErrInvalidType is returned for a factor type filter other than
	// THEMATIC or STATISTICAL.
	ErrInvalidType = errors.New("invalid factor type")
)

// Source provides the current factor snapshot.
type Source interface {
	Snapshot(ctx context.Context) (*model.FactorSnapshot, error)
}

// Rankings is the ranked list view at one horizon.
type Rankings struct {
	Horizon model.Horizon          `json:"horizon"`
	N       int                    `json:"n"`
	AsOf    time.Time              `json:"as_of"`
	Top     []ranking.RankedFactor `json:"top"`
	Bottom  []ranking.RankedFactor `json:"bottom"`
}

// SparklineView is one factor's normalized sparkline.
type SparklineView struct {
	ID      int            `json:"id"`
	Name    string         `json:"name"`
	Horizon model.Horizon  `json:"horizon"`
	Box     calculator.Box `json:"box"`
	*calculator.Sparkline
}

// Summary is the cross-section overview of a snapshot.
type Summary struct {
	AsOf        time.Time                 `json:"as_of"`
	Source      string                    `json:"source"`
	Factors     int                       `json:"factors"`
	Thematic    int                       `json:"thematic"`
	Statistical int                       `json:"statistical"`
	Horizons    []calculator.HorizonStats `json:"horizons"`
}

// Service provides factor board operations.
type Service struct {
	source Source
	log    zerolog.Logger
}

// NewService creates a new board service.
func NewService(source Source, log zerolog.Logger) *Service {
	return &Service{
		source: source,
		log:    log.With().Str("service", "board").Logger(),
	}
}

// Rankings returns the n best and n worst factors at h.
func (s *Service) Rankings(ctx context.Context, h model.Horizon, n int) (*Rankings, error) {
	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	top, bottom, err := ranking.TopAndBottom(snap.Records, h, n)
	if err != nil {
		return nil, err
	}
	return &Rankings{Horizon: h, N: len(top), AsOf: snap.FetchedAt, Top: top, Bottom: bottom}, nil
}

// Rotation returns the quadrant view for short-term x and medium-term y.
func (s *Service) Rotation(ctx context.Context, x, y model.Horizon) (*rotation.View, error) {
	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	view, err := rotation.Build(snap.Records, x, y)
	if err != nil {
		return nil, err
	}
	if len(view.Skipped) > 0 {
		s.log.Debug().Int("skipped", len(view.Skipped)).Str("x", x.String()).Str("y", y.String()).
			Msg("factors without data left off the rotation view")
	}
	return view, nil
}

// Sparkline returns the sparkline of factor id, coloured by its return at h.
func (s *Service) Sparkline(ctx context.Context, id int, h model.Horizon, box calculator.Box) (*SparklineView, error) {
	rec, err := s.Factor(ctx, id)
	if err != nil {
		return nil, err
	}
	sl, err := calculator.SparklineFor(rec, h, box)
	if err != nil {
		return nil, err
	}
	return &SparklineView{ID: rec.ID, Name: rec.Name, Horizon: h, Box: box, Sparkline: sl}, nil
}

// Factor returns the factor with the given id.
func (s *Service) Factor(ctx context.Context, id int) (*model.FactorRecord, error) {
	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	rec, ok := snap.Find(id)
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrFactorNotFound, id)
	}
	return rec, nil
}

// FactorByName finds a factor by name, ignoring case. An exact match wins;
// otherwise a unique prefix or substring match is accepted.
func (s *Service) FactorByName(ctx context.Context, name string) (*model.FactorRecord, error) {
	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	query := strings.ToLower(strings.TrimSpace(name))
	if query == "" {
		return nil, fmt.Errorf("%w: empty name", ErrFactorNotFound)
	}

	if rec, ok := snap.FindByName(query); ok {
		return rec, nil
	}
	var partial []*model.FactorRecord
	for i := range snap.Records {
		rec := &snap.Records[i]
		if strings.Contains(strings.ToLower(rec.Name), query) {
			partial = append(partial, rec)
		}
	}
	if len(partial) == 1 {
		return partial[0], nil
	}
	if len(partial) > 1 {
		return nil, fmt.Errorf("%w: %q is ambiguous (%d matches)", ErrFactorNotFound, name, len(partial))
	}
	return nil, fmt.Errorf("%w: %q", ErrFactorNotFound, name)
}

// Factors lists the snapshot's factors, optionally filtered by type.
func (s *Service) Factors(ctx context.Context, factorType string) ([]model.FactorRecord, error) {
	filter := strings.ToUpper(strings.TrimSpace(factorType))
	switch filter {
	case "", model.FactorTypeThematic, model.FactorTypeStatistical:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, factorType)
	}

	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.FactorRecord, 0, len(snap.Records))
	for _, rec := range snap.Records {
		if filter == "" || strings.EqualFold(rec.Type, filter) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Summary returns per-horizon cross-section statistics.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	sum := &Summary{
		AsOf:     snap.FetchedAt,
		Source:   snap.Source,
		Factors:  len(snap.Records),
		Horizons: calculator.Summarize(snap.Records),
	}
	for _, rec := range snap.Records {
		switch strings.ToUpper(rec.Type) {
		case model.FactorTypeThematic:
			sum.Thematic++
		case model.FactorTypeStatistical:
			sum.Statistical++
		}
	}
	return sum, nil
}
