package planner

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTyping(t *testing.T) {
	testCases := []struct {
		input   string
		want    Typing
		wantErr bool
	}{
		{"", TypingString, false},
		{"string", TypingString, false},
		{"natural", TypingNatural, false},
		{"NATURAL", "", true},
		{"auto", "", true},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseTyping(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", g.Generate())
	assert.Equal(t, "b", g.Generate())
	assert.Equal(t, "b", g.Generate(), "last id repeats")

	assert.Equal(t, "query-0", NewFixedGenerator().Generate())
}

func TestUUIDv7Generator(t *testing.T) {
	var g UUIDv7Generator
	first, second := g.Generate(), g.Generate()

	id, err := uuid.Parse(first)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.NotEqual(t, first, second)
}

func TestDefaultConfig(t *testing.T) {
	cfg := New(nil).Config()
	assert.Equal(t, TypingString, cfg.Typing)
	assert.True(t, cfg.UseApproximateCountDistinct)
	assert.NotNil(t, cfg.Logger)

	cfg = New(nil, WithLogger(nil), WithIDGenerator(nil), WithTyping(TypingNatural)).Config()
	assert.NotNil(t, cfg.Logger)
	assert.IsType(t, UUIDv7Generator{}, cfg.IDs)
	assert.Equal(t, TypingNatural, cfg.Typing)
}
