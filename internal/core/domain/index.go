package domain

// DirectoryKey is the single fixed KV key the owner directory is stored
// under (§6 "Persisted state layout").
const DirectoryKey = "^TOKEN_OWNERS"

// ShardKeyPrefix prefixes minted owner-shard keys (§6:
// "Shards at ^TOKEN_OWNERS_<uuid>").
const ShardKeyPrefix = "^TOKEN_OWNERS_"

// IndexEntry is one owner-shard entry describing a single token
// (§3 "Owner shard").
type IndexEntry struct {
	Hash           string `json:"hash"`
	Deleted        bool   `json:"deleted"`
	LastUpdateTime int64  `json:"last-update-time"`
}

// MakeIndexEntry produces the canonical shard-entry shape (§4.4).
func MakeIndexEntry(hash string, deleted bool, lastUpdateTime int64) IndexEntry {
	return IndexEntry{Hash: hash, Deleted: deleted, LastUpdateTime: lastUpdateTime}
}

// Shard is one owner's index: token name -> entry (§3 "Owner shard").
type Shard map[string]IndexEntry

// Directory maps owner -> owner-shard-key (§3 "Owner directory").
type Directory map[string]string

// LiveCount counts shard entries with Deleted == false, used by quota
// enforcement (§4.5 step 5).
func (s Shard) LiveCount() int {
	n := 0
	for _, e := range s {
		if !e.Deleted {
			n++
		}
	}
	return n
}
