package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainPlan     = "nestq/plan/v1"
	DomainOperator = "nestq/operator/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// PlanFingerprint computes a content-addressed identity for a plan rendering.
// Identical queries planned against identical summaries produce identical
// fingerprints.
func PlanFingerprint(plan Object) (string, error) {
	canonical, err := MarshalCanonical(plan)
	if err != nil {
		return "", fmt.Errorf("PlanFingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainPlan, canonical), nil
}

// OperatorID computes a short stable identity for an extraction operator
// dedup key. Useful for correlating operators across plans whose v-names differ.
func OperatorID(key string) string {
	return hashWithDomain(DomainOperator, []byte(key))[:16]
}

// MustPlanFingerprint is like PlanFingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustPlanFingerprint(plan Object) string {
	id, err := PlanFingerprint(plan)
	if err != nil {
		panic(err)
	}
	return id
}
