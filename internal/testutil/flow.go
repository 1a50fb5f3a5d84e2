package testutil

// FixedRunGenerator returns one token for every run, so scenario snapshots
// do not depend on how many runs a scenario starts. engine.FixedGenerator
// is the sequence-checking alternative.
type FixedRunGenerator struct {
	token string
}

// NewFixedRunGenerator returns a generator for token, or for
// "test-run-default" when token is empty. Scenarios set it with run_token.
func NewFixedRunGenerator(token string) *FixedRunGenerator {
	if token == "" {
		token = "test-run-default"
	}
	return &FixedRunGenerator{token: token}
}

// Generate implements engine.RunTokenGenerator.
func (g *FixedRunGenerator) Generate() string {
	return g.token
}
