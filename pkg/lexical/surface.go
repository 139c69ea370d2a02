package lexical

import (
	"encoding/base64"
	"fmt"
	"html"
	"strconv"
	"strings"

	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// mediaAttr carries a media node's verbatim payload through the editable
// surface. The surface never exposes decoded media fields; the original
// bytes ride along base64-encoded and come back out untouched.
const mediaAttr = "data-lexical-media"

// formatAttr carries text format bits that have no HTML tag mapping (anything
// beyond bold/italic/underline, e.g. strikethrough or code) so a round trip
// keeps the full format value.
const formatAttr = "data-lexical-format"

// surfaceFormats are the bits rendered as real tags on the surface.
const surfaceFormats = FormatBold | FormatItalic | FormatUnderline

// ToSurface renders the tree as the editable HTML surface. The mapping is
// deterministic: paragraph -> <p>, heading -> <hN>, list -> <ol>/<ul>,
// listitem -> <li>, linebreak -> <br>, and text format bits wrap in the
// fixed order <strong> > <em> > <u>.
func ToSurface(root Root) string {
	var sb strings.Builder
	for _, n := range root.Children {
		writeNode(&sb, n)
	}
	return sb.String()
}

func writeNode(sb *strings.Builder, n Node) {
	switch v := n.(type) {
	case Paragraph:
		sb.WriteString("<p>")
		for _, c := range v.Children {
			writeNode(sb, c)
		}
		sb.WriteString("</p>")

	case Heading:
		tag := headingTag(v.Level)
		fmt.Fprintf(sb, "<%s>", tag)
		for _, c := range v.Children {
			writeNode(sb, c)
		}
		fmt.Fprintf(sb, "</%s>", tag)

	case Text:
		writeText(sb, v)

	case List:
		tag := "ul"
		if v.Ordered {
			tag = "ol"
		}
		fmt.Fprintf(sb, "<%s>", tag)
		for _, c := range v.Children {
			writeNode(sb, c)
		}
		fmt.Fprintf(sb, "</%s>", tag)

	case ListItem:
		sb.WriteString("<li>")
		for _, c := range v.Children {
			writeNode(sb, c)
		}
		sb.WriteString("</li>")

	case LineBreak:
		sb.WriteString("<br/>")

	case Media:
		payload := base64.StdEncoding.EncodeToString(v.Raw)
		fmt.Fprintf(sb, `<div %s="%s" contenteditable="false"></div>`, mediaAttr, payload)
	}
}

func writeText(sb *strings.Builder, t Text) {
	extra := t.Format &^ surfaceFormats
	if extra != 0 {
		fmt.Fprintf(sb, `<span %s="%d">`, formatAttr, extra)
	}
	if t.Format&FormatBold != 0 {
		sb.WriteString("<strong>")
	}
	if t.Format&FormatItalic != 0 {
		sb.WriteString("<em>")
	}
	if t.Format&FormatUnderline != 0 {
		sb.WriteString("<u>")
	}
	sb.WriteString(html.EscapeString(t.Text))
	if t.Format&FormatUnderline != 0 {
		sb.WriteString("</u>")
	}
	if t.Format&FormatItalic != 0 {
		sb.WriteString("</em>")
	}
	if t.Format&FormatBold != 0 {
		sb.WriteString("</strong>")
	}
	if extra != 0 {
		sb.WriteString("</span>")
	}
}

// FromSurface reconstructs a tree from the editable surface. Text runs are
// recovered from inline nesting and flattened; a media placeholder is
// re-emitted by returning its preserved payload, never parsed from the
// surface markup.
func FromSurface(surface string) (Root, error) {
	nodes, err := xhtml.ParseFragment(strings.NewReader(surface), &xhtml.Node{
		Type:     xhtml.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return Root{}, fmt.Errorf("parse surface: %w", err)
	}

	var children []Node
	for _, n := range nodes {
		block, err := parseBlock(n)
		if err != nil {
			return Root{}, err
		}
		if block != nil {
			children = append(children, block)
		}
	}
	return Root{Children: children}, nil
}

func parseBlock(n *xhtml.Node) (Node, error) {
	if n.Type == xhtml.TextNode {
		if strings.TrimSpace(n.Data) == "" {
			return nil, nil
		}
		// Stray top-level text gets a paragraph wrapper rather than being lost.
		return Paragraph{Children: []Node{Text{Text: n.Data}}}, nil
	}
	if n.Type != xhtml.ElementNode {
		return nil, nil
	}

	switch n.Data {
	case "p":
		return Paragraph{Children: parseInlineChildren(n, 0)}, nil

	case "h1", "h2", "h3", "h4", "h5", "h6":
		return Heading{Level: headingLevel(n.Data), Children: parseInlineChildren(n, 0)}, nil

	case "ol", "ul":
		return parseList(n)

	case "br":
		return LineBreak{}, nil

	case "div":
		if payload, ok := attrValue(n, mediaAttr); ok {
			raw, err := base64.StdEncoding.DecodeString(payload)
			if err != nil {
				return nil, fmt.Errorf("corrupt media placeholder: %w", err)
			}
			return Media{Raw: raw}, nil
		}
		// Unknown wrapper divs are treated as paragraphs of their inline content.
		return Paragraph{Children: parseInlineChildren(n, 0)}, nil

	default:
		return Paragraph{Children: parseInlineChildren(n, 0)}, nil
	}
}

func parseList(n *xhtml.Node) (Node, error) {
	list := List{Ordered: n.Data == "ol"}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xhtml.ElementNode || c.Data != "li" {
			continue
		}
		item := ListItem{}
		for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
			if gc.Type == xhtml.ElementNode && (gc.Data == "ol" || gc.Data == "ul") {
				nested, err := parseList(gc)
				if err != nil {
					return nil, err
				}
				item.Children = append(item.Children, nested)
				continue
			}
			item.Children = append(item.Children, parseInline(gc, 0)...)
		}
		item.Children = mergeRuns(item.Children)
		list.Children = append(list.Children, item)
	}
	return list, nil
}

func parseInlineChildren(n *xhtml.Node, format int) []Node {
	var out []Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, parseInline(c, format)...)
	}
	return mergeRuns(out)
}

func parseInline(n *xhtml.Node, format int) []Node {
	switch n.Type {
	case xhtml.TextNode:
		if n.Data == "" {
			return nil
		}
		return []Node{Text{Text: n.Data, Format: format}}

	case xhtml.ElementNode:
		switch n.Data {
		case "strong", "b":
			return inlineChildren(n, format|FormatBold)
		case "em", "i":
			return inlineChildren(n, format|FormatItalic)
		case "u":
			return inlineChildren(n, format|FormatUnderline)
		case "br":
			return []Node{LineBreak{}}
		default:
			// Spans carrying unmapped format bits restore them; other inline
			// wrappers contribute nothing.
			if val, ok := attrValue(n, formatAttr); ok {
				if bits, err := strconv.Atoi(val); err == nil {
					return inlineChildren(n, format|bits)
				}
			}
			return inlineChildren(n, format)
		}
	}
	return nil
}

func inlineChildren(n *xhtml.Node, format int) []Node {
	var out []Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, parseInline(c, format)...)
	}
	return out
}

// mergeRuns joins adjacent text runs with an identical format, undoing any
// splitting introduced by the HTML parser.
func mergeRuns(nodes []Node) []Node {
	var out []Node
	for _, n := range nodes {
		t, ok := n.(Text)
		if !ok {
			out = append(out, n)
			continue
		}
		if len(out) > 0 {
			if prev, ok := out[len(out)-1].(Text); ok && prev.Format == t.Format {
				prev.Text += t.Text
				out[len(out)-1] = prev
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

func attrValue(n *xhtml.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
