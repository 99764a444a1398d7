package agreements

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/markethub/geocurrency/internal/models"
)

// CSVStore implements Store over a CSV export, loaded into memory
// Useful for development without a database and for the bulk-load tool
//
// CSV columns: id,user_id,currency,gateway,total_amount,native_amount,exchange_rate,status,created_at
// Optional columns may be empty; created_at is RFC3339
type CSVStore struct {
	byUser map[string][]models.MonetaryRecord
}

// NewCSVStore reads the whole file up front
func NewCSVStore(filePath string) (*CSVStore, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	store := &CSVStore{byUser: make(map[string][]models.MonetaryRecord)}

	for i, row := range rows {
		// Skip the header row
		if i == 0 && row[0] == "id" {
			continue
		}
		if len(row) < 9 {
			return nil, fmt.Errorf("row %d: expected 9 columns, got %d", i+1, len(row))
		}

		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		store.byUser[rec.UserID] = append(store.byUser[rec.UserID], rec)
	}

	// Match the MySQL store's newest-first ordering
	for _, recs := range store.byUser {
		sort.Slice(recs, func(a, b int) bool {
			return recs[a].CreatedAt.After(recs[b].CreatedAt)
		})
	}

	return store, nil
}

// All returns every record in the store, used by the bulk-load tool
func (s *CSVStore) All() []models.MonetaryRecord {
	var all []models.MonetaryRecord
	for _, recs := range s.byUser {
		all = append(all, recs...)
	}
	return all
}

// ListByUser implements Store
func (s *CSVStore) ListByUser(ctx context.Context, userID string) ([]models.MonetaryRecord, error) {
	records := s.byUser[userID]
	out := make([]models.MonetaryRecord, len(records))
	copy(out, records)
	return out, nil
}

// Save implements Store (in-memory only, the file is not rewritten)
func (s *CSVStore) Save(ctx context.Context, rec models.MonetaryRecord) error {
	s.byUser[rec.UserID] = append(s.byUser[rec.UserID], rec)
	return nil
}

// Close implements Store
func (s *CSVStore) Close() error {
	return nil
}

// parseRow converts one CSV row into a MonetaryRecord
func parseRow(row []string) (models.MonetaryRecord, error) {
	total, err := strconv.ParseFloat(row[4], 64)
	if err != nil {
		return models.MonetaryRecord{}, fmt.Errorf("bad total_amount %q: %w", row[4], err)
	}

	rec := models.MonetaryRecord{
		ID:          row[0],
		UserID:      row[1],
		Currency:    row[2],
		Gateway:     row[3],
		TotalAmount: total,
		Status:      row[7],
	}

	if row[5] != "" {
		native, err := strconv.ParseFloat(row[5], 64)
		if err != nil {
			return models.MonetaryRecord{}, fmt.Errorf("bad native_amount %q: %w", row[5], err)
		}
		rec.NativeAmount = &native
	}

	if row[6] != "" {
		rate, err := strconv.ParseFloat(row[6], 64)
		if err != nil {
			return models.MonetaryRecord{}, fmt.Errorf("bad exchange_rate %q: %w", row[6], err)
		}
		rec.ExchangeRate = &rate
	}

	if row[8] != "" {
		created, err := time.Parse(time.RFC3339, row[8])
		if err != nil {
			return models.MonetaryRecord{}, fmt.Errorf("bad created_at %q: %w", row[8], err)
		}
		rec.CreatedAt = created
	}

	return rec, nil
}
