package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix enables future algorithm migration.
const (
	DomainGraph        = "flexi/graph/v1"
	DomainContinuation = "flexi/continuation/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// GraphHash computes the content hash of a graph description.
// Two descriptions that differ only in node positions hash identically.
func GraphHash(d GraphDescription) (string, error) {
	canonical, err := MarshalCanonical(d.toCanonical())
	if err != nil {
		return "", fmt.Errorf("GraphHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainGraph, canonical), nil
}

// ContinuationHash computes the content hash of a parked continuation snapshot.
func ContinuationHash(snapshot IRObject) (string, error) {
	canonical, err := MarshalCanonical(snapshot)
	if err != nil {
		return "", fmt.Errorf("ContinuationHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainContinuation, canonical), nil
}

// MustGraphHash is like GraphHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustGraphHash(d GraphDescription) string {
	h, err := GraphHash(d)
	if err != nil {
		panic(err)
	}
	return h
}
