package planner

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// ContextApproximateCountDistinct is the query context flag that overrides
// Config.UseApproximateCountDistinct for one query.
const ContextApproximateCountDistinct = "useApproximateCountDistinct"

// Typing selects how path functions without RETURNING are typed.
type Typing string

const (
	// TypingString types every untyped path function as STRING.
	TypingString Typing = "string"
	// TypingNatural uses the stored type under the path when the summary
	// knows it, STRING otherwise.
	TypingNatural Typing = "natural"
)

// ParseTyping parses a --typing flag value.
func ParseTyping(s string) (Typing, error) {
	switch Typing(s) {
	case TypingString, TypingNatural:
		return Typing(s), nil
	case "":
		return TypingString, nil
	}
	return "", fmt.Errorf("unknown typing mode %q (want %q or %q)", s, TypingString, TypingNatural)
}

// IDGenerator generates query ids.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 query ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined ids, then repeats the last one.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
// With no ids it always returns "query-0".
func NewFixedGenerator(ids ...string) *FixedGenerator {
	if len(ids) == 0 {
		ids = []string{"query-0"}
	}
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined id.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.ids[g.idx]
	if g.idx < len(g.ids)-1 {
		g.idx++
	}
	return id
}

// Config controls planning.
type Config struct {
	Typing Typing

	// UseApproximateCountDistinct plans COUNT(DISTINCT x) as an approximate
	// count, which nested columns do not support. Default: true.
	UseApproximateCountDistinct bool

	Logger *slog.Logger
	IDs    IDGenerator
}

// DefaultConfig returns the configuration used when no options are given.
func DefaultConfig() Config {
	return Config{
		Typing:                      TypingString,
		UseApproximateCountDistinct: true,
		Logger:                      slog.Default(),
		IDs:                         UUIDv7Generator{},
	}
}

// Option configures a Planner.
type Option func(*Config)

// WithTyping sets the typing mode for path functions without RETURNING.
func WithTyping(t Typing) Option {
	return func(c *Config) {
		c.Typing = t
	}
}

// WithApproximateCountDistinct toggles approximate COUNT(DISTINCT).
func WithApproximateCountDistinct(enabled bool) Option {
	return func(c *Config) {
		c.UseApproximateCountDistinct = enabled
	}
}

// WithLogger sets the logger. A nil logger keeps the default.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithIDGenerator sets the query id generator.
//
// Use WithIDGenerator(NewFixedGenerator("q1")) for deterministic plans in tests.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *Config) {
		if g != nil {
			c.IDs = g
		}
	}
}
