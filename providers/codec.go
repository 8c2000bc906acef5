package providers

import (
	"encoding/binary"
	"fmt"

	cid "github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-base32"
)

// Codec converts content-ids and peer-ids to and from the canonical
// textual forms used in backend keys. It is the one piece of identity
// handling the registry depends on; it never inspects CID or PeerId
// internal structure beyond what produces a stable, injective text
// form for each.
type Codec interface {
	// CIDText returns the canonical base32 multihash text for c.
	CIDText(c cid.Cid) string
	// PeerText returns the canonical text form for p.
	PeerText(p peer.ID) string
	// DecodePeerText inverts PeerText. Relied on only by GetProviders
	// to reconstruct the peer.ID values a cached PeerMap stores as
	// plain text keys.
	DecodePeerText(text string) (peer.ID, error)
}

// defaultCodec base32-encodes the raw multihash bytes of a CID and the
// raw bytes of a peer.ID, exactly as go-libp2p-kad-dht's
// mkProvKey/mkProvKeyFor do, which keeps the on-disk key layout
// byte-for-byte compatible.
type defaultCodec struct{}

// DefaultCodec is the Codec used when none is supplied to NewRegistry.
func DefaultCodec() Codec { return defaultCodec{} }

func (defaultCodec) CIDText(c cid.Cid) string {
	return base32.RawStdEncoding.EncodeToString(c.Hash())
}

func (defaultCodec) PeerText(p peer.ID) string {
	return base32.RawStdEncoding.EncodeToString([]byte(p))
}

func (defaultCodec) DecodePeerText(text string) (peer.ID, error) {
	raw, err := base32.RawStdEncoding.DecodeString(text)
	if err != nil {
		return "", fmt.Errorf("%w: peer text %q: %s", ErrMalformedKey, text, err)
	}
	return peer.ID(raw), nil
}

// EncodeTimestamp returns the LEB128 unsigned varint encoding of ms,
// the format every BackendValue is stored as. There is no version
// byte; the layout is fixed.
func EncodeTimestamp(ms uint64) []byte {
	buf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(buf, ms)
	return buf[:n]
}

// DecodeTimestamp inverts EncodeTimestamp. It fails with
// ErrMalformedRecord on truncation or overflow.
func DecodeTimestamp(data []byte) (uint64, error) {
	ms, n := binary.Uvarint(data)
	if n <= 0 {
		return 0, fmt.Errorf("%w: truncated or overflowing varint", ErrMalformedRecord)
	}
	return ms, nil
}
