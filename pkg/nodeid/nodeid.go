// Package nodeid mints opaque, time-sortable identifiers used for owner
// shard keys (§4.4 "mints a new opaque key") and cluster node ids.
//
// Grounded on the teacher's domain.NewAPIKey, which mints ULIDs for API
// key ids with a monotonic entropy source.
package nodeid

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var entropy = ulid.Monotonic(rand.Reader, 0)

// New mints a fresh, lowercase ULID-based identifier. Owner-shard-keys are
// never reused across rebuilds (§3 "Owner directory"): a fresh call to New
// always produces a new value, never one seen before, by construction.
func New() string {
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		// crypto/rand failing is unrecoverable; ulid.New only errors on
		// a broken entropy source.
		panic("nodeid: ulid generation failed: " + err.Error())
	}
	return strings.ToLower(id.String())
}

// NewShardKey mints a fresh owner-shard key with the registry's reserved
// prefix (§6 "Shards at ^TOKEN_OWNERS_<uuid>").
func NewShardKey(prefix string) string {
	return prefix + New()
}
