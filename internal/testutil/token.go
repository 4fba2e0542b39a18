package testutil

// FixedTokenGenerator returns the same run token every time.
//
// This enables deterministic store contents and golden comparison: the
// same problem compiled with the same generator writes byte-identical rows.
//
// Thread-safety: FixedTokenGenerator is stateless and safe for concurrent use.
type FixedTokenGenerator struct {
	token string
}

// NewFixedTokenGenerator creates a fixed run token generator.
// If token is empty, Generate() returns "test-run-default".
func NewFixedTokenGenerator(token string) *FixedTokenGenerator {
	if token == "" {
		token = "test-run-default"
	}
	return &FixedTokenGenerator{token: token}
}

// Generate returns the fixed token.
//
// Implements store.TokenGenerator.
func (g *FixedTokenGenerator) Generate() string {
	return g.token
}
