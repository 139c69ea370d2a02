package lexical

// Package lexical holds the typed document tree produced by the generation
// pipeline and the conversion to/from the editable surface. The tree is a
// closed set of node kinds; decoding an unknown kind is an error rather than
// a silent passthrough, so every consumer handles the full set.

// NodeType identifies a node kind on the wire.
type NodeType string

const (
	NodeParagraph NodeType = "paragraph"
	NodeHeading   NodeType = "heading"
	NodeText      NodeType = "text"
	NodeList      NodeType = "list"
	NodeListItem  NodeType = "listitem"
	NodeLineBreak NodeType = "linebreak"
	// NodeMedia is the Lexical "upload" node. Its payload is opaque to this
	// package and is preserved byte-for-byte.
	NodeMedia NodeType = "upload"
)

// Text format bitmask.
const (
	FormatBold      = 1 << 0
	FormatItalic    = 1 << 1
	FormatUnderline = 1 << 2
)

// Node is the closed union of document node kinds. Only types in this
// package implement it.
type Node interface {
	Type() NodeType
	isNode()
}

// Root holds the ordered top-level nodes of a document.
type Root struct {
	Children []Node
}

// Paragraph is a block of inline content.
type Paragraph struct {
	Children []Node
}

// Heading is a titled block with a level in [1,6].
type Heading struct {
	Level    int
	Children []Node
}

// Text is an inline run with a format bitmask.
type Text struct {
	Text   string
	Format int
}

// List is an ordered or unordered list of ListItem children.
type List struct {
	Ordered  bool
	Children []Node
}

// ListItem may contain inline nodes and nested List nodes.
type ListItem struct {
	Children []Node
}

// LineBreak is an explicit inline break.
type LineBreak struct{}

// Media is an opaque embedded-media reference. Raw holds the exact JSON the
// node was decoded from and is re-emitted unchanged; nothing in this package
// interprets it beyond the identity accessors below.
type Media struct {
	Raw []byte
}

func (Paragraph) Type() NodeType { return NodeParagraph }
func (Heading) Type() NodeType   { return NodeHeading }
func (Text) Type() NodeType      { return NodeText }
func (List) Type() NodeType      { return NodeList }
func (ListItem) Type() NodeType  { return NodeListItem }
func (LineBreak) Type() NodeType { return NodeLineBreak }
func (Media) Type() NodeType     { return NodeMedia }

func (Paragraph) isNode() {}
func (Heading) isNode()   {}
func (Text) isNode()      {}
func (List) isNode()      {}
func (ListItem) isNode()  {}
func (LineBreak) isNode() {}
func (Media) isNode()     {}
