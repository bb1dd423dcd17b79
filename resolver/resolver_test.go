package resolver

import (
	"context"
	"errors"
	"testing"

	"carpulse/models"
)

type fakeModelStore struct {
	nextID int64
	byKey  map[string]*models.CarModel
}

func newFakeModelStore() *fakeModelStore {
	return &fakeModelStore{nextID: 1, byKey: make(map[string]*models.CarModel)}
}

func (s *fakeModelStore) GetModelByCode(_ context.Context, maker, code string) (*models.CarModel, error) {
	m, ok := s.byKey[maker+"|"+code]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (s *fakeModelStore) CreateModel(_ context.Context, m *models.CarModel) error {
	m.ID = s.nextID
	s.nextID++
	cp := *m
	s.byKey[m.Maker+"|"+m.ModelCode] = &cp
	return nil
}

func (s *fakeModelStore) UpdateModel(_ context.Context, m *models.CarModel) error {
	cp := *m
	s.byKey[m.Maker+"|"+m.ModelCode] = &cp
	return nil
}

func TestResolveCreatesOnce(t *testing.T) {
	store := newFakeModelStore()
	r := New(store, nil)
	ctx := context.Background()

	obs := Observation{Maker: "현대", ModelCode: "3533", ModelName: "아반떼", Segment: "준중형"}

	id1, err := r.Resolve(ctx, obs)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	id2, err := r.Resolve(ctx, obs)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected same id, got %d and %d", id1, id2)
	}
	if len(store.byKey) != 1 {
		t.Fatalf("expected 1 stored model, got %d", len(store.byKey))
	}
}

func TestResolveRefreshesObservedFields(t *testing.T) {
	store := newFakeModelStore()
	r := New(store, nil)
	ctx := context.Background()

	id, err := r.Resolve(ctx, Observation{Maker: "기아", ModelCode: "4201", ModelName: "쏘렌토"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	_, err = r.Resolve(ctx, Observation{
		Maker:     "기아",
		ModelCode: "4201",
		ModelName: "쏘렌토",
		Segment:   "중형 SUV",
		ModelURL:  "https://auto.danawa.com/auto/?Work=model&Model=4201",
	})
	if err != nil {
		t.Fatalf("refresh resolve: %v", err)
	}

	m, _ := store.GetModelByCode(ctx, "기아", "4201")
	if m.ID != id {
		t.Fatalf("id changed on refresh: %d -> %d", id, m.ID)
	}
	if m.Segment != "중형 SUV" {
		t.Fatalf("segment not refreshed: %q", m.Segment)
	}
	if m.DanawaModelURL == "" {
		t.Fatalf("model url not refreshed")
	}
	if !m.IsActive {
		t.Fatalf("refresh must not deactivate")
	}
}

func TestResolveRejectsMalformedIdentity(t *testing.T) {
	r := New(newFakeModelStore(), nil)
	ctx := context.Background()

	_, err := r.Resolve(ctx, Observation{Maker: "", ModelCode: "3533"})
	var ve *models.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	_, err = r.Resolve(ctx, Observation{Maker: "현대", ModelCode: "  "})
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestDeactivateIsExplicitOnly(t *testing.T) {
	store := newFakeModelStore()
	r := New(store, nil)
	ctx := context.Background()

	_, err := r.Resolve(ctx, Observation{Maker: "현대", ModelCode: "3533", ModelName: "아반떼"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if err := r.Deactivate(ctx, "현대", "3533"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	m, _ := store.GetModelByCode(ctx, "현대", "3533")
	if m.IsActive {
		t.Fatalf("expected inactive model")
	}

	// a later sighting still resolves to the same row
	id, err := r.Resolve(ctx, Observation{Maker: "현대", ModelCode: "3533", ModelName: "아반떼"})
	if err != nil {
		t.Fatalf("resolve after deactivate: %v", err)
	}
	if id != m.ID {
		t.Fatalf("expected id %d, got %d", m.ID, id)
	}
}

func TestNormalizedMatcher(t *testing.T) {
	m := NormalizedMatcher{}

	if !m.Same("아반떼", " 아반떼 ") {
		t.Fatalf("whitespace variant should match")
	}
	if !m.Same("Avante (CN7)", "avante cn7") {
		t.Fatalf("punctuation variant should match")
	}
	if !m.Same("그랜저 하이브리드", "그랜저") {
		t.Fatalf("powertrain suffix variant should match")
	}
	if m.Same("아반떼", "쏘나타") {
		t.Fatalf("different models must not match")
	}
}
