package testutil

import (
	"context"
	"embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/nestq/internal/segment"
)

//go:embed fixtures/*.yaml
var fixtureFS embed.FS

// Fixture names.
const (
	// Nested is the seven-row table with the nest and nester columns.
	Nested = "nested"
	// Arrays holds arrays of objects and scalar arrays under obj.
	Arrays = "arrays"
	// Lookup is a small join target keyed by k.
	Lookup = "lookup"
)

// Fixture loads an embedded fixture table by name.
func Fixture(name string) (*segment.Table, error) {
	data, err := fixtureFS.ReadFile("fixtures/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown fixture %q: %w", name, err)
	}
	return segment.ParseYAML(data, name)
}

// MustFixture loads a fixture or fails the test.
func MustFixture(t testing.TB, name string) *segment.Table {
	t.Helper()
	table, err := Fixture(name)
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	return table
}

// Catalog returns a catalog holding the named fixtures, or all of them when
// no names are given.
func Catalog(t testing.TB, names ...string) *segment.Catalog {
	t.Helper()
	if len(names) == 0 {
		names = []string{Nested, Arrays, Lookup}
	}
	c := segment.NewCatalog()
	for _, name := range names {
		if err := c.Add(context.Background(), MustFixture(t, name)); err != nil {
			t.Fatalf("add fixture %s: %v", name, err)
		}
	}
	return c
}

// WriteFixture copies an embedded fixture into dir and returns its path.
func WriteFixture(t testing.TB, dir, name string) string {
	t.Helper()
	data, err := fixtureFS.ReadFile("fixtures/" + name + ".yaml")
	if err != nil {
		t.Fatalf("unknown fixture %q: %v", name, err)
	}
	path := filepath.Join(dir, name+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
