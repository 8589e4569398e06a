// Package ir provides the value and type vocabulary shared by every nestq
// package.
//
// This package contains leaf types only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Value is a sealed union; every switch over it enumerates all members
//   - ExtractionType is a closed enum; variants are TypeSet facts, never types
//   - Booleans stored in documents report LONG
//   - Canonical JSON (sorted keys, NFC strings) backs plan fingerprints
package ir
