package agreements

import (
	"context"

	"github.com/markethub/geocurrency/internal/models"
)

// Store defines the interface for agreement record access
// Allows multiple implementations (MySQL, CSV) and easy testing with mocks
type Store interface {
	// ListByUser returns all agreement records for a user, newest first
	ListByUser(ctx context.Context, userID string) ([]models.MonetaryRecord, error)

	// Save inserts or replaces an agreement record
	Save(ctx context.Context, rec models.MonetaryRecord) error

	// Close cleans up resources (database connections, file handles, etc.)
	Close() error
}
