package blocks

// Header is an unsealed block header as delivered by the node.
type Header struct {
	Number     uint64 // block height
	ParentHash Hash   // content hash of the parent block
	StateRoot  Hash   // root of the post-execution state trie
	Timestamp  uint64 // block timestamp in seconds
	GasLimit   uint64 // maximum gas allowed in the block
	GasUsed    uint64 // gas consumed by the block
	ExtraData  []byte // arbitrary extra payload set by the producer
}

// Hasher computes the content hash of a header. It is the collaborator used
// to seal headers whose hash the transport omitted.
type Hasher interface {
	Hash(h Header) Hash
}

// SealedHeader is a header plus its content hash. The hash is either supplied
// by the remote node or computed once via a Hasher; it is never recomputed
// after construction.
type SealedHeader struct {
	header Header
	hash   Hash
}

// Seal attaches the given content hash to the header.
func Seal(h Header, hash Hash) SealedHeader {
	return SealedHeader{header: h, hash: hash}
}

// Number returns the block height.
func (s SealedHeader) Number() uint64 {
	return s.header.Number
}

// Hash returns the content hash attached at construction.
func (s SealedHeader) Hash() Hash {
	return s.hash
}

// ParentHash returns the content hash of the parent block.
func (s SealedHeader) ParentHash() Hash {
	return s.header.ParentHash
}

// Header returns the underlying unsealed header.
func (s SealedHeader) Header() Header {
	return s.header
}

// Ref returns the lightweight identity of the sealed header.
func (s SealedHeader) Ref() Ref {
	return Ref{Number: s.header.Number, Hash: s.hash}
}

// RawHeader is a header as delivered by the transport, whose content hash may
// be absent. Pending blocks legitimately lack a hash; for any other block a
// missing hash is a protocol anomaly that callers are expected to report.
type RawHeader struct {
	Header Header
	Hash   *Hash // nil when the node omitted it
}

// Seal produces a SealedHeader, preferring the node-supplied hash. When the
// hash is absent it is computed via the hasher; the second return value
// reports whether that local computation happened.
func (r RawHeader) Seal(hasher Hasher) (SealedHeader, bool) {
	if r.Hash != nil {
		return Seal(r.Header, *r.Hash), false
	}
	return Seal(r.Header, hasher.Hash(r.Header)), true
}
