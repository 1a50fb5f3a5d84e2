package engine

import (
	"sync"

	"github.com/google/uuid"
)

// RunTokenGenerator produces the token that tags every log line and report
// of one run.
type RunTokenGenerator interface {
	Generate() string
}

// UUIDv7Generator issues UUIDv7 tokens, which sort by run start time.
// It is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a hyphenated UUIDv7. It panics only when the system
// random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator hands out a fixed sequence of tokens, for tests that assert
// on run tokens.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
}

// NewFixedGenerator returns a generator yielding tokens in order.
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// Generate returns the next token. It panics once the sequence is used up,
// which means the test started more runs than it declared.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.tokens) == 0 {
		panic("engine: FixedGenerator exhausted")
	}
	token := g.tokens[0]
	g.tokens = g.tokens[1:]
	return token
}
