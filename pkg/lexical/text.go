package lexical

import "strings"

// PlainText extracts the readable text of a tree for indexing and chat
// context. Media nodes contribute nothing.
func PlainText(root Root) string {
	var sb strings.Builder
	for _, n := range root.Children {
		writePlain(&sb, n)
	}
	return strings.TrimSpace(sb.String())
}

func writePlain(sb *strings.Builder, n Node) {
	switch v := n.(type) {
	case Paragraph:
		for _, c := range v.Children {
			writePlain(sb, c)
		}
		sb.WriteString("\n\n")
	case Heading:
		for _, c := range v.Children {
			writePlain(sb, c)
		}
		sb.WriteString("\n\n")
	case Text:
		sb.WriteString(v.Text)
	case List:
		for _, c := range v.Children {
			writePlain(sb, c)
		}
		sb.WriteString("\n")
	case ListItem:
		for _, c := range v.Children {
			writePlain(sb, c)
		}
		sb.WriteString("\n")
	case LineBreak:
		sb.WriteString("\n")
	case Media:
		// Opaque, skipped.
	}
}
