package lexical

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Wire structures mirroring Lexical's serialized editor state.

type documentEnvelope struct {
	Root rootEnvelope `json:"root"`
}

type rootEnvelope struct {
	Type      string            `json:"type"`
	Version   int               `json:"version"`
	Direction string            `json:"direction"`
	Format    string            `json:"format"`
	Indent    int               `json:"indent"`
	Children  []json.RawMessage `json:"children,omitempty"`
}

type nodeHeader struct {
	Type NodeType `json:"type"`
}

type paragraphWire struct {
	Type     NodeType          `json:"type"`
	Version  int               `json:"version"`
	Children []json.RawMessage `json:"children,omitempty"`
}

type headingWire struct {
	Type     NodeType          `json:"type"`
	Version  int               `json:"version"`
	Tag      string            `json:"tag"`
	Children []json.RawMessage `json:"children,omitempty"`
}

type textWire struct {
	Type    NodeType `json:"type"`
	Version int      `json:"version"`
	Text    string   `json:"text"`
	Format  int      `json:"format"`
}

type listWire struct {
	Type     NodeType          `json:"type"`
	Version  int               `json:"version"`
	ListType string            `json:"listType"`
	Children []json.RawMessage `json:"children,omitempty"`
}

type listItemWire struct {
	Type     NodeType          `json:"type"`
	Version  int               `json:"version"`
	Children []json.RawMessage `json:"children,omitempty"`
}

type lineBreakWire struct {
	Type    NodeType `json:"type"`
	Version int      `json:"version"`
}

// DecodeDocument parses a serialized document into a typed tree.
// Media ("upload") nodes keep their raw bytes untouched.
func DecodeDocument(data []byte) (Root, error) {
	var env documentEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Root{}, fmt.Errorf("decode document: %w", err)
	}
	children, err := decodeNodes(env.Root.Children)
	if err != nil {
		return Root{}, err
	}
	return Root{Children: children}, nil
}

// EncodeDocument serializes a tree back to the wire format. The envelope is
// assembled by hand rather than handed to json.Marshal, which would re-encode
// (and compact) the verbatim bytes of media nodes.
func EncodeDocument(root Root) ([]byte, error) {
	children, err := encodeNodes(root.Children)
	if err != nil {
		return nil, err
	}
	head, err := json.Marshal(rootEnvelope{
		Type:      "root",
		Version:   1,
		Direction: "ltr",
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"root":`)
	buf.Write(spliceChildren(head, children))
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// spliceChildren rewrites a marshaled object to carry a children array whose
// elements are emitted byte for byte.
func spliceChildren(head []byte, children []json.RawMessage) []byte {
	var buf bytes.Buffer
	buf.Write(head[:len(head)-1])
	buf.WriteString(`,"children":[`)
	for i, c := range children {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(c)
	}
	buf.WriteString(`]}`)
	return buf.Bytes()
}

func decodeNodes(raws []json.RawMessage) ([]Node, error) {
	nodes := make([]Node, 0, len(raws))
	for _, raw := range raws {
		n, err := decodeNode(raw)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func decodeNode(raw json.RawMessage) (Node, error) {
	var head nodeHeader
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode node header: %w", err)
	}

	switch head.Type {
	case NodeParagraph:
		var w paragraphWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("decode paragraph: %w", err)
		}
		children, err := decodeNodes(w.Children)
		if err != nil {
			return nil, err
		}
		return Paragraph{Children: children}, nil

	case NodeHeading:
		var w headingWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("decode heading: %w", err)
		}
		children, err := decodeNodes(w.Children)
		if err != nil {
			return nil, err
		}
		return Heading{Level: headingLevel(w.Tag), Children: children}, nil

	case NodeText:
		var w textWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("decode text: %w", err)
		}
		return Text{Text: w.Text, Format: w.Format}, nil

	case NodeList:
		var w listWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		children, err := decodeNodes(w.Children)
		if err != nil {
			return nil, err
		}
		return List{Ordered: w.ListType == "number", Children: children}, nil

	case NodeListItem:
		var w listItemWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("decode listitem: %w", err)
		}
		children, err := decodeNodes(w.Children)
		if err != nil {
			return nil, err
		}
		return ListItem{Children: children}, nil

	case NodeLineBreak:
		return LineBreak{}, nil

	case NodeMedia:
		// Opaque payload. Copy the bytes so the slice does not alias the
		// caller's buffer.
		cp := make([]byte, len(raw))
		copy(cp, raw)
		return Media{Raw: cp}, nil

	default:
		return nil, fmt.Errorf("unknown node type %q", head.Type)
	}
}

func encodeNodes(nodes []Node) ([]json.RawMessage, error) {
	raws := make([]json.RawMessage, 0, len(nodes))
	for _, n := range nodes {
		raw, err := encodeNode(n)
		if err != nil {
			return nil, err
		}
		raws = append(raws, raw)
	}
	return raws, nil
}

func encodeNode(n Node) (json.RawMessage, error) {
	switch v := n.(type) {
	case Paragraph:
		return encodeParent(paragraphWire{Type: NodeParagraph, Version: 1}, v.Children)

	case Heading:
		return encodeParent(headingWire{Type: NodeHeading, Version: 1, Tag: headingTag(v.Level)}, v.Children)

	case Text:
		return json.Marshal(textWire{Type: NodeText, Version: 1, Text: v.Text, Format: v.Format})

	case List:
		listType := "bullet"
		if v.Ordered {
			listType = "number"
		}
		return encodeParent(listWire{Type: NodeList, Version: 1, ListType: listType}, v.Children)

	case ListItem:
		return encodeParent(listItemWire{Type: NodeListItem, Version: 1}, v.Children)

	case LineBreak:
		return json.Marshal(lineBreakWire{Type: NodeLineBreak, Version: 1})

	case Media:
		// Verbatim. These bytes must never pass through json.Marshal, which
		// would compact and re-escape them.
		return json.RawMessage(v.Raw), nil

	default:
		return nil, fmt.Errorf("unknown node %T", n)
	}
}

// encodeParent marshals a container head (its children field left empty) and
// splices the already-encoded children in, keeping media bytes untouched.
func encodeParent(head interface{}, children []Node) (json.RawMessage, error) {
	raws, err := encodeNodes(children)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(head)
	if err != nil {
		return nil, err
	}
	return spliceChildren(b, raws), nil
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 2
}

func headingTag(level int) string {
	if level < 1 || level > 6 {
		level = 2
	}
	return fmt.Sprintf("h%d", level)
}
