package score

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainPlan     = "muse/plan/v1"
	DomainSnapshot = "muse/snapshot/v1"
)

// HashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null separator prevents
// domain/data boundary ambiguity.
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SnapshotHash computes a content-addressed digest of a snapshot.
// Two snapshots hash identically iff their normalized canonical forms are
// byte-identical; replay idempotence and merge determinism tests compare
// these digests instead of walking structures.
func SnapshotHash(s *HeadSnapshot) (string, error) {
	canonical, err := MarshalCanonical(s.CanonicalMap())
	if err != nil {
		return "", fmt.Errorf("snapshot hash: %w", err)
	}
	return HashWithDomain(DomainSnapshot, canonical), nil
}

// SnapshotCanonical returns the canonical JSON bytes of a snapshot.
// Golden tests compare these directly.
func SnapshotCanonical(s *HeadSnapshot) ([]byte, error) {
	canonical, err := MarshalCanonical(s.CanonicalMap())
	if err != nil {
		return nil, fmt.Errorf("snapshot canonical: %w", err)
	}
	return canonical, nil
}

// MustSnapshotHash is like SnapshotHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSnapshotHash(s *HeadSnapshot) string {
	h, err := SnapshotHash(s)
	if err != nil {
		panic(err)
	}
	return h
}
