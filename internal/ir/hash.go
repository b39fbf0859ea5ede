package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainReport is the domain prefix for report identity.
// The version suffix allows a future algorithm migration.
const DomainReport = "turtle/report/v1"

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ReportID computes a content-addressed ID for an attempt report.
// The same report always produces the same ID, so sinks can write idempotently.
func ReportID(r Report) (string, error) {
	canonical, err := MarshalCanonical(r.canonicalMap())
	if err != nil {
		return "", fmt.Errorf("ReportID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainReport, canonical), nil
}
