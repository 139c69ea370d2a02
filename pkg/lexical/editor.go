package lexical

import (
	"bytes"
	"encoding/json"
)

// EditorState tracks a document through an editing session. The original
// tree is kept alongside the surface; the surface-to-tree conversion only
// runs when the user actually touched the surface, so an untouched document
// always resolves to the exact original tree.
type EditorState struct {
	original Root
	surface  string
	modified bool
}

// NewEditorState renders the tree to its editable surface.
func NewEditorState(root Root) *EditorState {
	return &EditorState{
		original: root,
		surface:  ToSurface(root),
	}
}

// Surface returns the current editable surface.
func (s *EditorState) Surface() string {
	return s.surface
}

// Modified reports whether the surface was touched since creation or the
// last deserialization.
func (s *EditorState) Modified() bool {
	return s.modified
}

// Edit replaces the surface and marks the state modified.
func (s *EditorState) Edit(surface string) {
	s.surface = surface
	s.modified = true
}

// Resolve returns the tree the session currently represents: the original
// tree when untouched, otherwise the tree reconstructed from the surface.
func (s *EditorState) Resolve() (Root, error) {
	if !s.modified {
		return s.original, nil
	}
	return FromSurface(s.surface)
}

type editorStateWire struct {
	Original json.RawMessage `json:"original"`
	Surface  string          `json:"surface"`
	Modified bool            `json:"modified"`
}

// MarshalJSON is the explicit persistence boundary for page reloads. The
// encoded document is spliced in directly; routing it back through
// json.Marshal would compact the verbatim media bytes.
func (s *EditorState) MarshalJSON() ([]byte, error) {
	original, err := EncodeDocument(s.original)
	if err != nil {
		return nil, err
	}
	rest, err := json.Marshal(struct {
		Surface  string `json:"surface"`
		Modified bool   `json:"modified"`
	}{s.surface, s.modified})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"original":`)
	buf.Write(original)
	buf.WriteByte(',')
	buf.Write(rest[1:])
	return buf.Bytes(), nil
}

func (s *EditorState) UnmarshalJSON(data []byte) error {
	var w editorStateWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	original, err := DecodeDocument(w.Original)
	if err != nil {
		return err
	}
	s.original = original
	s.surface = w.Surface
	s.modified = w.Modified
	return nil
}
