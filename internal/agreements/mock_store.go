package agreements

import (
	"context"

	"github.com/markethub/geocurrency/internal/models"
)

// MockStore is a test double for the Store interface
// It tracks calls and lets tests control behavior
type MockStore struct {
	// Data maps user IDs to their agreement records
	Data map[string][]models.MonetaryRecord

	// Track method calls for verification in tests
	ListByUserCalls []string
	SaveCalls       []models.MonetaryRecord
	CloseCalled     bool

	// Control behavior for error scenarios
	ListByUserError error
	SaveError       error
}

// NewMockStore creates an empty mock store
func NewMockStore() *MockStore {
	return &MockStore{
		Data: make(map[string][]models.MonetaryRecord),
	}
}

// ListByUser implements Store
func (m *MockStore) ListByUser(ctx context.Context, userID string) ([]models.MonetaryRecord, error) {
	m.ListByUserCalls = append(m.ListByUserCalls, userID)
	if m.ListByUserError != nil {
		return nil, m.ListByUserError
	}
	return m.Data[userID], nil
}

// Save implements Store
func (m *MockStore) Save(ctx context.Context, rec models.MonetaryRecord) error {
	m.SaveCalls = append(m.SaveCalls, rec)
	if m.SaveError != nil {
		return m.SaveError
	}
	m.Data[rec.UserID] = append(m.Data[rec.UserID], rec)
	return nil
}

// Close implements Store
func (m *MockStore) Close() error {
	m.CloseCalled = true
	return nil
}
