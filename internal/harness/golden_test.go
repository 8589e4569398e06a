package harness

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nestq/internal/ir"
)

func TestRunWithGolden(t *testing.T) {
	testCases := []string{
		"group_by_nested_x",
		"variant_over_match",
		"scan_order_limit",
		"invalid_path",
	}

	for _, name := range testCases {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(filepath.Join(scenarioDir, name+".yaml"))
			require.NoError(t, err)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRunWithGolden_Deterministic(t *testing.T) {
	s, err := LoadScenario(filepath.Join(scenarioDir, "unnest_dimension.yaml"))
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, Snapshot(s.Name, first), Snapshot(s.Name, second))
	fp1, err := first.Plan.Fingerprint()
	require.NoError(t, err)
	fp2, err := second.Plan.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)
}

func TestSnapshot(t *testing.T) {
	t.Run("plan error", func(t *testing.T) {
		r := NewResult()
		r.PlanError = errors.New("boom")
		assert.Equal(t, "scenario: s\nerror: boom\n", string(Snapshot("s", r)))
	})

	t.Run("rows without plan", func(t *testing.T) {
		r := NewResult()
		r.Rows = [][]ir.Value{
			{ir.Long(1), ir.Double(1.5)},
			{ir.Array{ir.String("a")}, ir.Null{}},
		}
		want := "scenario: s\nrows:\n  [1,1.5]\n  [[\"a\"],null]\n"
		assert.Equal(t, want, string(Snapshot("s", r)))
	})
}
