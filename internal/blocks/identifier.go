package blocks

import "fmt"

// Identifier addresses a specific block, either by content hash or by number.
// Exactly one of the two is set.
type Identifier struct {
	hash   *Hash
	number *uint64
}

// HashIdentifier builds an Identifier addressing a block by content hash.
func HashIdentifier(h Hash) Identifier {
	return Identifier{hash: &h}
}

// NumberIdentifier builds an Identifier addressing a block by number.
func NumberIdentifier(n uint64) Identifier {
	return Identifier{number: &n}
}

// Hash returns the hash and true when the identifier addresses by hash.
func (id Identifier) Hash() (Hash, bool) {
	if id.hash == nil {
		return Hash{}, false
	}
	return *id.hash, true
}

// Number returns the number and true when the identifier addresses by number.
func (id Identifier) Number() (uint64, bool) {
	if id.number == nil {
		return 0, false
	}
	return *id.number, true
}

// String implements fmt.Stringer.
func (id Identifier) String() string {
	switch {
	case id.hash != nil:
		return id.hash.Hex()
	case id.number != nil:
		return fmt.Sprintf("0x%x", *id.number)
	default:
		return "<empty>"
	}
}

type atTag uint8

const (
	atLatest atTag = iota
	atFinalized
	atSafe
	atEarliest
	atPending
	atIdentifier
)

// AtBlock is a request-time block selector: a well-known chain position or a
// specific block identifier. Values are immutable and copied freely.
type AtBlock struct {
	tag atTag
	id  Identifier
}

// Well-known block selectors.
var (
	Latest    = AtBlock{tag: atLatest}
	Finalized = AtBlock{tag: atFinalized}
	Safe      = AtBlock{tag: atSafe}
	Earliest  = AtBlock{tag: atEarliest}
	Pending   = AtBlock{tag: atPending}
)

// At builds a selector addressing the specific block id.
func At(id Identifier) AtBlock {
	return AtBlock{tag: atIdentifier, id: id}
}

// AtNumber builds a selector addressing a block by number.
func AtNumber(n uint64) AtBlock {
	return At(NumberIdentifier(n))
}

// AtHash builds a selector addressing a block by content hash.
func AtHash(h Hash) AtBlock {
	return At(HashIdentifier(h))
}

// Identifier returns the addressed block and true when the selector targets a
// specific block rather than a well-known chain position.
func (a AtBlock) Identifier() (Identifier, bool) {
	return a.id, a.tag == atIdentifier
}

// String returns the JSON-RPC representation of the selector: a well-known
// tag name, or the hexadecimal number/hash of the addressed block.
func (a AtBlock) String() string {
	switch a.tag {
	case atLatest:
		return "latest"
	case atFinalized:
		return "finalized"
	case atSafe:
		return "safe"
	case atEarliest:
		return "earliest"
	case atPending:
		return "pending"
	default:
		return a.id.String()
	}
}
