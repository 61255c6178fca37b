package worldcup

import (
	"context"

	"github.com/stretchr/testify/mock"

	"worldcup-service/internal/deck"
	"worldcup-service/internal/store"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) LoadCandidates(ctx context.Context, categoryID string) ([]deck.Candidate, error) {
	args := m.Called(ctx, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]deck.Candidate), args.Error(1)
}

func (m *MockStore) ApplyOps(ctx context.Context, categoryID string, ops []deck.PersistOp) error {
	args := m.Called(ctx, categoryID, ops)
	return args.Error(0)
}

func (m *MockStore) ListCategories(ctx context.Context) ([]store.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.Category), args.Error(1)
}

func (m *MockStore) Ranking(ctx context.Context, categoryID string, limit int) ([]deck.Candidate, error) {
	args := m.Called(ctx, categoryID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]deck.Candidate), args.Error(1)
}

func (m *MockStore) CreateCategory(ctx context.Context, name string) (store.Category, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(store.Category), args.Error(1)
}

func (m *MockStore) AddSong(ctx context.Context, categoryID string, song deck.Candidate) (deck.Candidate, error) {
	args := m.Called(ctx, categoryID, song)
	return args.Get(0).(deck.Candidate), args.Error(1)
}
