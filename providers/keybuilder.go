package providers

import (
	"fmt"
	"strings"
)

// providerPrefix is the namespace for every provider record key stored
// in the backend. Bit-stable: do not change without a migration.
const providerPrefix = "/providers"

// cidPrefix is the prefix under which every provider record for a
// single CID lives; a prefix scan of this value enumerates them all.
func cidPrefix(cidText string) string {
	return providerPrefix + "/" + cidText
}

// recordKey builds the full backend key for one (cid, peer) pair:
// "/providers/<cid-text>/<peer-text>".
func recordKey(cidText, peerText string) string {
	return cidPrefix(cidText) + "/" + peerText
}

// parseKey splits a scanned backend key back into its cid/peer text
// components. It requires exactly four '/'-delimited segments: the
// leading empty segment, "providers", the cid text, and the peer
// text. Keys that don't match this shape are rejected rather than
// normalized, per the key layout's bit-stability guarantee.
func parseKey(key string) (cidText, peerText string, err error) {
	parts := strings.Split(key, "/")
	if len(parts) != 4 || parts[0] != "" || parts[1] != "providers" {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedKey, key)
	}
	if parts[2] == "" || parts[3] == "" {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedKey, key)
	}
	return parts[2], parts[3], nil
}
