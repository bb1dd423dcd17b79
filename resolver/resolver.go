// Package resolver maps raw (maker, source code/name) pairs to canonical
// model identities, creating models lazily on first sighting.
package resolver

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"carpulse/models"
)

// ModelStore is the subset of storage the resolver needs.
type ModelStore interface {
	GetModelByCode(ctx context.Context, maker, modelCode string) (*models.CarModel, error)
	CreateModel(ctx context.Context, m *models.CarModel) error
	UpdateModel(ctx context.Context, m *models.CarModel) error
}

type Resolver struct {
	store   ModelStore
	matcher Matcher
}

func New(store ModelStore, matcher Matcher) *Resolver {
	if matcher == nil {
		matcher = NormalizedMatcher{}
	}
	return &Resolver{store: store, matcher: matcher}
}

// Observation carries what a source reported about a model sighting.
type Observation struct {
	Maker       string
	ModelCode   string
	ModelName   string
	ModelNameEN string
	Segment     string
	ModelURL    string
}

// Resolve returns the canonical model id for an observation, creating the
// model on first sighting. Later sightings refresh name/segment/URL
// last-write-wins. Resolving the same (maker, model_code) twice always
// returns the same id.
func (r *Resolver) Resolve(ctx context.Context, obs Observation) (int64, error) {
	maker := strings.TrimSpace(obs.Maker)
	code := strings.TrimSpace(obs.ModelCode)
	if maker == "" {
		return 0, &models.ValidationError{Field: "maker", Reason: "empty"}
	}
	if code == "" {
		return 0, &models.ValidationError{Field: "model_code", Reason: "empty"}
	}

	existing, err := r.store.GetModelByCode(ctx, maker, code)
	if err != nil {
		return 0, fmt.Errorf("get model %s/%s: %w", maker, code, err)
	}

	if existing == nil {
		m := &models.CarModel{
			Maker:          maker,
			ModelCode:      code,
			ModelName:      obs.ModelName,
			ModelNameEN:    obs.ModelNameEN,
			Segment:        obs.Segment,
			DanawaModelURL: obs.ModelURL,
			IsActive:       true,
			CreatedAt:      time.Now(),
			UpdatedAt:      time.Now(),
		}
		if err := r.store.CreateModel(ctx, m); err != nil {
			return 0, fmt.Errorf("create model %s/%s: %w", maker, code, err)
		}
		log.Printf("New model: %s %s (%s)", maker, obs.ModelName, code)
		return m.ID, nil
	}

	if r.refresh(existing, obs) {
		existing.UpdatedAt = time.Now()
		if err := r.store.UpdateModel(ctx, existing); err != nil {
			return 0, fmt.Errorf("update model %s/%s: %w", maker, code, err)
		}
	}

	return existing.ID, nil
}

// refresh applies last-write-wins updates from a later sighting. Returns
// whether anything changed. A name that the matcher considers the same
// spelling variant does not overwrite the stored one.
func (r *Resolver) refresh(m *models.CarModel, obs Observation) bool {
	changed := false

	if obs.ModelName != "" && obs.ModelName != m.ModelName && !r.matcher.Same(obs.ModelName, m.ModelName) {
		m.ModelName = obs.ModelName
		changed = true
	}
	if obs.ModelNameEN != "" && obs.ModelNameEN != m.ModelNameEN {
		m.ModelNameEN = obs.ModelNameEN
		changed = true
	}
	if obs.Segment != "" && obs.Segment != m.Segment {
		m.Segment = obs.Segment
		changed = true
	}
	if obs.ModelURL != "" && obs.ModelURL != m.DanawaModelURL {
		m.DanawaModelURL = obs.ModelURL
		changed = true
	}

	return changed
}

// Deactivate marks a model inactive on an explicit administrative signal.
// Absence from a day's feed is expected and never deactivates anything.
func (r *Resolver) Deactivate(ctx context.Context, maker, modelCode string) error {
	m, err := r.store.GetModelByCode(ctx, maker, modelCode)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("unknown model %s/%s", maker, modelCode)
	}
	if !m.IsActive {
		return nil
	}
	m.IsActive = false
	m.UpdatedAt = time.Now()
	return r.store.UpdateModel(ctx, m)
}
