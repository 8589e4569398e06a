package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanFingerprintStable(t *testing.T) {
	plan := Object{
		"virtual_columns": Array{String("v0|nest|$.x|STRING")},
		"filter":          Null{},
	}
	reordered := Object{
		"filter":          Null{},
		"virtual_columns": Array{String("v0|nest|$.x|STRING")},
	}

	a, err := PlanFingerprint(plan)
	require.NoError(t, err)
	b, err := PlanFingerprint(reordered)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestPlanFingerprintDiffers(t *testing.T) {
	a := MustPlanFingerprint(Object{"type": String("LONG")})
	b := MustPlanFingerprint(Object{"type": String("STRING")})
	assert.NotEqual(t, a, b)
}

func TestDomainSeparation(t *testing.T) {
	data := []byte(`{"a":1}`)
	assert.NotEqual(t, hashWithDomain(DomainPlan, data), hashWithDomain(DomainOperator, data))
}

func TestOperatorID(t *testing.T) {
	id := OperatorID("field|nest|$.x|STRING|false")
	assert.Len(t, id, 16)
	assert.Equal(t, id, OperatorID("field|nest|$.x|STRING|false"))
	assert.NotEqual(t, id, OperatorID("field|nest|$.x|LONG|false"))
}

func TestMustPlanFingerprintPanics(t *testing.T) {
	assert.Panics(t, func() {
		MustPlanFingerprint(Object{"bad": Double(math.Inf(1))})
	})
}
