package geo

import "context"

// MockPositionProvider is a test double for PositionProvider
// It tracks calls and returns configured coordinates or errors
type MockPositionProvider struct {
	Coords Coordinates
	Err    error

	CurrentCalls int
}

// Current implements PositionProvider
func (m *MockPositionProvider) Current(ctx context.Context) (Coordinates, error) {
	m.CurrentCalls++
	if m.Err != nil {
		return Coordinates{}, m.Err
	}
	return m.Coords, nil
}

// MockGeocoder is a test double for Geocoder
type MockGeocoder struct {
	Place Place
	Err   error

	ReverseCalls []Coordinates
}

// Reverse implements Geocoder
func (m *MockGeocoder) Reverse(ctx context.Context, lat, lon float64) (Place, error) {
	m.ReverseCalls = append(m.ReverseCalls, Coordinates{Latitude: lat, Longitude: lon})
	if m.Err != nil {
		return Place{}, m.Err
	}
	return m.Place, nil
}
