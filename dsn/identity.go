package dsn

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Identity is the pool lookup key: the normalized connection string plus a
// stable hash of the extra driver arguments. Two logically identical targets
// with different driver extras (say, different TLS bundles) get distinct
// identities and are pooled separately.
type Identity struct {
	ConnString string
	ExtraHash  string
}

// NewIdentity canonicalizes extra into a deterministic hash. Key order never
// affects the result; an empty or nil map always hashes the same.
func NewIdentity(connString string, extra map[string]any) Identity {
	return Identity{ConnString: connString, ExtraHash: hashExtra(extra)}
}

// hashExtra folds the extra-args map into a short stable digest.
func hashExtra(extra map[string]any) string {
	if len(extra) == 0 {
		return "0000000000000000"
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%v;", k, extra[k])
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Key returns the raw composite lookup key. Unlike String it is not
// redacted, so identities differing only in credentials stay distinct.
// Never log it.
func (id Identity) Key() string {
	return id.ConnString + "\x00" + id.ExtraHash
}

// String renders the identity with credentials redacted, safe for logs.
func (id Identity) String() string {
	return fmt.Sprintf("%s#%s", Redact(id.ConnString), id.ExtraHash)
}
