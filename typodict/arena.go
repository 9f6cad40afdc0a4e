// Package typodict implements the typo/prefix dictionary (spec §4.4): a
// trie over indexed tokens supporting exact lookup, prefix enumeration,
// and bounded edit-distance enumeration, plus a reverse suffix index for
// infix queries. The trie uses an arena of nodes addressed by 32-bit
// handles rather than owning pointers — ported from the tagged-pointer
// compact trie design in original_source/include/cvt.h, adapted to Go
// (which has no pointer tagging) by reserving the handle's top two bits
// for the node kind instead of tagging a real pointer.
package typodict

// handleKind occupies the top 2 bits of a Handle. Only kindInternal is
// allocated today; the two spare bits are reserved for a future
// path-compressed node kind (§9) without needing to widen Handle.
type handleKind uint32

const kindInternal handleKind = 0

const (
	kindShift = 30
	kindMask  = 0x3 << kindShift
	idxMask   = ^uint32(0) >> 2
)

// Handle addresses a node in an arena: its top 2 bits tag the node kind,
// its low 30 bits index into Arena.nodes. The zero Handle is the nil
// handle (no node); RootHandle is a distinct, non-zero sentinel so
// valid() can tell the two apart.
type Handle uint32

const nilHandle Handle = 0

func newHandle(kind handleKind, idx int) Handle {
	return Handle(uint32(kind)<<kindShift | (uint32(idx) & idxMask))
}

func (h Handle) kind() handleKind { return handleKind((uint32(h) & kindMask) >> kindShift) }
func (h Handle) index() int       { return int(uint32(h) & idxMask) }
func (h Handle) valid() bool      { return h != nilHandle }

// node is one arena slot.
type node struct {
	children  map[byte]Handle
	frequency int            // occurrence count at a terminal node, for prefix ranking
	terminal  bool           // true if a token ends at this node
	origins   map[string]int // infix index only: original token -> occurrence count
}

// Arena owns the trie's node storage. Handles are stable for the arena's
// lifetime; nodes are never physically moved, only logically unlinked.
// Index 0 is reserved as the nil sentinel and never allocated to a real
// node, so RootHandle and nilHandle never collide.
type Arena struct {
	nodes []node
}

func NewArena() *Arena {
	a := &Arena{}
	a.nodes = append(a.nodes, node{})                                // index 0: reserved nil sentinel
	a.nodes = append(a.nodes, node{children: make(map[byte]Handle)}) // root at index 1
	return a
}

const RootHandle = Handle(1) // kindInternal, index 1

func (a *Arena) get(h Handle) *node {
	return &a.nodes[h.index()]
}

func (a *Arena) alloc(kind handleKind) Handle {
	a.nodes = append(a.nodes, node{children: make(map[byte]Handle)})
	return newHandle(kind, len(a.nodes)-1)
}

// Len reports the number of live nodes, excluding the reserved nil
// sentinel slot, exposed for metrics.TypoArenaNodes.
func (a *Arena) Len() int { return len(a.nodes) - 1 }
