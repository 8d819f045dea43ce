package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/roach88/rtsvc/internal/rtsvc"
)

// Domain prefixes for content-addressed identity.
const (
	DomainTable = "rtsvc/table/v1"
	DomainCall  = "rtsvc/call/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash returns the domain-separated SHA-256 of v's canonical encoding.
func Hash(domain string, v any) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}
	return hashWithDomain(domain, data), nil
}

// TableLayout is the canonical description of an index's occupied slots.
// Two indexes with the same layout route every call identically.
func TableLayout(ix *rtsvc.Index) []any {
	slots := ix.Slots()
	out := make([]any, 0, len(slots))
	for _, s := range slots {
		out = append(out, map[string]any{
			"key":       s.Key,
			"oen":       uint8(s.OEN),
			"call_type": s.CallType.String(),
			"index":     s.Index,
			"name":      s.Name,
		})
	}
	return out
}

// TableFingerprint hashes the routing layout of ix.
func TableFingerprint(ix *rtsvc.Index) string {
	// The layout holds only strings and ints, so it always encodes.
	fp, err := Hash(DomainTable, TableLayout(ix))
	if err != nil {
		panic(err)
	}
	return fp
}

// CallID identifies a dispatched call within a boot by its sequence number
// and inputs.
func CallID(bootID string, seq int64, fid uint32, args [4]string) string {
	id, err := Hash(DomainCall, map[string]any{
		"boot_id": bootID,
		"seq":     seq,
		"fid":     fid,
		"args":    args[:],
	})
	if err != nil {
		panic(err)
	}
	return id
}
