// Package hash computes the deterministic content hash used as a token's
// ETag (§4.3 "Hash / ETag").
//
// It generalizes the teacher's pkg/token bearer-token hash (SHA-256 over a
// fixed byte string, hex encoded, constant-time compared) to a canonical
// hash over a sanitized, recognized-key-only payload map.
package hash

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/fleetkit/tokenreg/internal/core/domain"
)

// Sanitize projects params and metadata onto the recognized token-data key
// set (§3 invariant 3), dropping unknown keys and the previous chain, and
// normalizing zero values to "absent" so that equal payloads hash equally
// regardless of how a zero value was spelled on the wire (Design Note
// "Dynamic map payloads").
//
// The returned map is marshaled with encoding/json, which serializes
// map[string]any keys in sorted order — so the resulting hash is invariant
// under reordering of the input mapping, per Testable Property 1.
func Sanitize(params domain.ServiceParameters, meta domain.TokenMetadata) map[string]any {
	out := make(map[string]any)

	putString := func(key, val string) {
		if val != "" {
			out[key] = val
		}
	}
	putNonZeroFloat := func(key string, val float64) {
		if val != 0 {
			out[key] = val
		}
	}
	putNonZeroInt := func(key string, val int64) {
		if val != 0 {
			out[key] = val
		}
	}

	putString(domain.KeyCmd, params.Cmd)
	putNonZeroFloat(domain.KeyCPUs, params.CPUs)
	putNonZeroInt(domain.KeyMemoryMB, params.MemoryMB)
	if len(params.Ports) > 0 {
		out[domain.KeyPorts] = params.Ports
	}
	putString(domain.KeyHealthCheck, params.HealthCheck)
	putString(domain.KeyAuthentication, params.Authentication)
	putString(domain.KeyPermittedUser, params.PermittedUser)
	putNonZeroInt(domain.KeyInterstitialSecs, params.InterstitialSecs)
	putString(domain.KeyRunAsUser, params.RunAsUser)

	putString(domain.KeyOwner, meta.Owner)
	putString(domain.KeyRoot, meta.Root)
	putString(domain.KeyCluster, meta.Cluster)
	putNonZeroInt(domain.KeyLastUpdateTime, meta.LastUpdateTime)
	putString(domain.KeyLastUpdateUser, meta.LastUpdateUser)
	if meta.Deleted {
		out[domain.KeyDeleted] = true
	}

	return out
}

// SanitizeRecord is a convenience wrapper over Sanitize for a whole record.
func SanitizeRecord(record *domain.TokenRecord) map[string]any {
	if record == nil {
		return map[string]any{}
	}
	return Sanitize(record.Params, record.Metadata)
}

// Hash computes the canonical content hash of a sanitized payload map. An
// empty or nil record hashes the same as an explicit empty mapping (§4.3:
// "empty/deleted existing is treated as hash of {}").
func Hash(sanitized map[string]any) string {
	if sanitized == nil {
		sanitized = map[string]any{}
	}
	// json.Marshal on a map[string]any always emits keys in sorted order,
	// which is what makes this hash stable under input reordering.
	canonical, err := json.Marshal(sanitized)
	if err != nil {
		// Sanitize only ever produces JSON-marshalable primitives; a
		// failure here means a caller bypassed Sanitize with something
		// exotic. Fall back to its string form rather than panic.
		canonical = []byte(fmt.Sprintf("%v", sanitized))
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// HashRecord computes the ETag hash of a token record, treating a nil
// record as the empty payload.
func HashRecord(record *domain.TokenRecord) string {
	return Hash(SanitizeRecord(record))
}

// Verify performs a constant-time comparison of a supplied If-Match value
// against the current hash, avoiding timing side-channels on the
// comparison (grounded on pkg/token.Verify's use of crypto/subtle).
func Verify(ifMatch, currentHash string) bool {
	return subtle.ConstantTimeCompare([]byte(ifMatch), []byte(currentHash)) == 1
}
