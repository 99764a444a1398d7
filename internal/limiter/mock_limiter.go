package limiter

// MockLimiter is a test double for the Limiter interface
type MockLimiter struct {
	// AllowResult controls what Allow returns
	AllowResult bool

	// Track calls for verification in tests
	AllowCalls  []string
	CloseCalled bool
}

// NewMockLimiter creates a mock that allows everything by default
func NewMockLimiter() *MockLimiter {
	return &MockLimiter{AllowResult: true}
}

// Allow implements Limiter
func (m *MockLimiter) Allow(key string) bool {
	m.AllowCalls = append(m.AllowCalls, key)
	return m.AllowResult
}

// Close implements Limiter
func (m *MockLimiter) Close() error {
	m.CloseCalled = true
	return nil
}
