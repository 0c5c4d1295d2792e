package blocks

// Transaction is a transaction body carried by a full block.
type Transaction struct {
	Hash Hash   // unique transaction hash
	From string // sender address
	To   string // recipient address
}

// Log is a contract event emitted by a transaction.
type Log struct {
	Address     string // address of the emitting contract
	Topics      []Hash // indexed event topics
	Data        []byte // unindexed event payload
	BlockNumber uint64 // height of the containing block
	BlockHash   Hash   // hash of the containing block
	TxHash      Hash   // hash of the emitting transaction
	Index       uint64 // position of the log inside the block
	Removed     bool   // true when the log was reverted by a reorg
}

// LogFilter selects which logs a subscription or query should match.
type LogFilter struct {
	Addresses []string // contract addresses to match (empty matches all)
	Topics    []Hash   // event topics to match (empty matches all)
	BlockHash *Hash    // restrict to a single block (point queries only)
}

// Kind is the completeness level of a MultiBlock.
type Kind uint8

const (
	// KindHeader carries the header only.
	KindHeader Kind = iota
	// KindPartial carries the header and the transaction hashes.
	KindPartial
	// KindFull carries the header, transaction bodies, and ommers.
	KindFull
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindHeader:
		return "header"
	case KindPartial:
		return "partial"
	case KindFull:
		return "full"
	default:
		return "unknown"
	}
}

// upgrades lists the (current, candidate) kind pairs for which the candidate
// carries strictly more data. The decision is independent of payload size.
var upgrades = map[[2]Kind]bool{
	{KindHeader, KindPartial}: true,
	{KindHeader, KindFull}:    true,
	{KindPartial, KindFull}:   true,
}

// MultiBlock is a block at one of three completeness levels sharing a single
// identity. Equality is defined solely by content hash: the Full, Partial and
// Header renditions of the same block are equal. Ordering is by (number,
// hash-as-big-endian-integer), giving a deterministic tie-break for fork
// races where two blocks share a number.
type MultiBlock struct {
	kind         Kind
	header       SealedHeader
	txHashes     []Hash
	transactions []Transaction
	ommers       []Header
}

// HeaderBlock builds a header-only MultiBlock.
func HeaderBlock(h SealedHeader) MultiBlock {
	return MultiBlock{kind: KindHeader, header: h}
}

// PartialBlock builds a MultiBlock carrying the header and transaction hashes.
func PartialBlock(h SealedHeader, txHashes []Hash) MultiBlock {
	return MultiBlock{kind: KindPartial, header: h, txHashes: txHashes}
}

// FullBlock builds a MultiBlock carrying the header, transaction bodies and ommers.
func FullBlock(h SealedHeader, transactions []Transaction, ommers []Header) MultiBlock {
	return MultiBlock{kind: KindFull, header: h, transactions: transactions, ommers: ommers}
}

// Kind returns the completeness level of the block.
func (b MultiBlock) Kind() Kind {
	return b.kind
}

// Header returns the sealed header shared by every completeness level.
func (b MultiBlock) Header() SealedHeader {
	return b.header
}

// Hash returns the block content hash.
func (b MultiBlock) Hash() Hash {
	return b.header.Hash()
}

// Number returns the block height.
func (b MultiBlock) Number() uint64 {
	return b.header.Number()
}

// ParentHash returns the content hash of the parent block.
func (b MultiBlock) ParentHash() Hash {
	return b.header.ParentHash()
}

// TxHashes returns the transaction hashes of a partial block (nil otherwise).
func (b MultiBlock) TxHashes() []Hash {
	return b.txHashes
}

// Transactions returns the transaction bodies of a full block (nil otherwise).
func (b MultiBlock) Transactions() []Transaction {
	return b.transactions
}

// Ommers returns the ommer headers of a full block (nil otherwise).
func (b MultiBlock) Ommers() []Header {
	return b.ommers
}

// Ref returns the lightweight identity of the block.
func (b MultiBlock) Ref() Ref {
	return b.header.Ref()
}

// ParentRef returns the identity of the parent block. Block zero is treated
// as self-parented genesis.
func (b MultiBlock) ParentRef() Ref {
	return b.Ref().Parent(b.ParentHash())
}

// Equal reports whether both values represent the same block, regardless of
// completeness level.
func (b MultiBlock) Equal(other MultiBlock) bool {
	return b.Hash() == other.Hash()
}

// Compare orders two blocks by (number, hash-as-big-endian-integer),
// returning -1, 0 or +1.
func (b MultiBlock) Compare(other MultiBlock) int {
	return b.Ref().Compare(other.Ref())
}

// Upgrade replaces the receiver with other only when other carries strictly
// more data (Header to Partial/Full, Partial to Full), returning the
// displaced value. Otherwise the receiver is untouched and other is returned
// unused. This lets a low-fidelity push notification be transparently
// superseded by a higher-fidelity polled fetch.
func (b *MultiBlock) Upgrade(other MultiBlock) MultiBlock {
	if upgrades[[2]Kind{b.kind, other.kind}] {
		displaced := *b
		*b = other
		return displaced
	}
	return other
}

// Ref is a lightweight (number, hash) block identity used wherever only
// identity and ordering are needed.
type Ref struct {
	Number uint64
	Hash   Hash
}

// Parent computes the identity of the parent given its hash. Block zero is
// treated as self-parented genesis.
func (r Ref) Parent(parentHash Hash) Ref {
	if r.Number == 0 {
		return r
	}
	return Ref{Number: r.Number - 1, Hash: parentHash}
}

// Equal reports whether both refs identify the same block.
func (r Ref) Equal(other Ref) bool {
	return r.Hash == other.Hash
}

// Compare orders refs by number first, breaking ties by comparing the hash
// as a big-endian integer. Refs with equal hashes compare equal regardless
// of number.
func (r Ref) Compare(other Ref) int {
	if r.Hash == other.Hash {
		return 0
	}

	switch {
	case r.Number < other.Number:
		return -1
	case r.Number > other.Number:
		return 1
	default:
		return r.Hash.Cmp(other.Hash)
	}
}
