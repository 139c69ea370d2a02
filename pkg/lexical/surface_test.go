package lexical

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func sampleTree() Root {
	return Root{Children: []Node{
		Heading{Level: 2, Children: []Node{Text{Text: "Cell Structure"}}},
		Paragraph{Children: []Node{
			Text{Text: "The "},
			Text{Text: "cell membrane", Format: FormatBold},
			Text{Text: " is "},
			Text{Text: "selectively permeable", Format: FormatBold | FormatItalic},
			Text{Text: "."},
		}},
		List{Ordered: true, Children: []Node{
			ListItem{Children: []Node{Text{Text: "Nucleus"}}},
			ListItem{Children: []Node{Text{Text: "Mitochondria", Format: FormatUnderline}}},
		}},
		Paragraph{Children: []Node{
			Text{Text: "First line"},
			LineBreak{},
			Text{Text: "Second line"},
		}},
	}}
}

func TestRoundTripWithoutEdits(t *testing.T) {
	original := sampleTree()

	surface := ToSurface(original)
	got, err := FromSurface(surface)
	if err != nil {
		t.Fatalf("FromSurface: %v", err)
	}

	if !reflect.DeepEqual(original, got) {
		t.Errorf("round trip changed the tree\noriginal: %#v\ngot:      %#v", original, got)
	}
}

func TestRoundTripPreservesMediaBytes(t *testing.T) {
	narration := []byte(`{"type":"upload","version":3,"format":"","id":"audio_20250101","fields":null,"relationTo":"media","value":42}`)

	original := Root{Children: []Node{
		Media{Raw: narration},
		Paragraph{Children: []Node{Text{Text: "Photosynthesis overview."}}},
	}}

	got, err := FromSurface(ToSurface(original))
	if err != nil {
		t.Fatalf("FromSurface: %v", err)
	}

	media, ok := got.Children[0].(Media)
	if !ok {
		t.Fatalf("first node is %T, want Media", got.Children[0])
	}
	if string(media.Raw) != string(narration) {
		t.Errorf("media payload was reconstructed:\nwant %s\ngot  %s", narration, media.Raw)
	}
}

func TestUnmappedFormatBitsSurviveRoundTrip(t *testing.T) {
	const strikethrough = 1 << 3

	original := Root{Children: []Node{
		Paragraph{Children: []Node{
			Text{Text: "crossed out", Format: strikethrough},
			Text{Text: " and bold too", Format: FormatBold | strikethrough},
		}},
	}}

	got, err := FromSurface(ToSurface(original))
	if err != nil {
		t.Fatalf("FromSurface: %v", err)
	}

	para := got.Children[0].(Paragraph)
	if f := para.Children[0].(Text).Format; f != strikethrough {
		t.Errorf("format lost in round trip: want %d, got %d", strikethrough, f)
	}
	if f := para.Children[1].(Text).Format; f != FormatBold|strikethrough {
		t.Errorf("combined format lost: want %d, got %d", FormatBold|strikethrough, f)
	}
}

func TestFormatWrapperOrder(t *testing.T) {
	tests := []struct {
		name   string
		format int
		want   string
	}{
		{"bold", FormatBold, "<strong>x</strong>"},
		{"italic", FormatItalic, "<em>x</em>"},
		{"underline", FormatUnderline, "<u>x</u>"},
		{"bold italic", FormatBold | FormatItalic, "<strong><em>x</em></strong>"},
		{"all three", FormatBold | FormatItalic | FormatUnderline, "<strong><em><u>x</u></em></strong>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			surface := ToSurface(Root{Children: []Node{Paragraph{Children: []Node{Text{Text: "x", Format: tt.format}}}}})
			want := "<p>" + tt.want + "</p>"
			if surface != want {
				t.Errorf("surface = %q, want %q", surface, want)
			}
		})
	}
}

func TestTextEscaping(t *testing.T) {
	original := Root{Children: []Node{
		Paragraph{Children: []Node{Text{Text: `a < b && "c"`}}},
	}}

	got, err := FromSurface(ToSurface(original))
	if err != nil {
		t.Fatalf("FromSurface: %v", err)
	}
	if !reflect.DeepEqual(original, got) {
		t.Errorf("escaped text did not round-trip: %#v", got)
	}
}

func TestEditedSurfaceRecoversStructure(t *testing.T) {
	state := NewEditorState(sampleTree())

	edited := strings.Replace(state.Surface(), "Cell Structure", "Cell Structure and Function", 1)
	state.Edit(edited)

	got, err := state.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	heading, ok := got.Children[0].(Heading)
	if !ok {
		t.Fatalf("first node is %T, want Heading", got.Children[0])
	}
	text := heading.Children[0].(Text)
	if text.Text != "Cell Structure and Function" {
		t.Errorf("heading text = %q", text.Text)
	}
}

func TestUntouchedStateSkipsConversion(t *testing.T) {
	original := Root{Children: []Node{
		// An untouched document must come back identical even when the
		// surface conversion would normalize it.
		Paragraph{Children: []Node{
			Text{Text: "ad"},
			Text{Text: "jacent"},
		}},
	}}

	state := NewEditorState(original)
	got, err := state.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !reflect.DeepEqual(original, got) {
		t.Errorf("untouched resolve changed the tree: %#v", got)
	}
	if state.Modified() {
		t.Error("state reported modified without edits")
	}
}

func TestEditorStateSerializationBoundary(t *testing.T) {
	state := NewEditorState(sampleTree())
	state.Edit(state.Surface() + "<p>appended</p>")

	data, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var restored EditorState
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !restored.Modified() {
		t.Error("modified flag lost across serialization")
	}
	if restored.Surface() != state.Surface() {
		t.Error("surface lost across serialization")
	}
}

func TestEditorStateKeepsMediaBytesAcrossSerialization(t *testing.T) {
	raw := `{"type": "upload", "version": 3, "relationTo": "media", "value": 42, "fields": null}`
	state := NewEditorState(Root{Children: []Node{
		Media{Raw: []byte(raw)},
		Paragraph{Children: []Node{Text{Text: "untouched"}}},
	}})

	data, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var restored EditorState
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	resolved, err := restored.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	media, ok := resolved.Children[0].(Media)
	if !ok {
		t.Fatalf("first node is %T, want Media", resolved.Children[0])
	}
	if string(media.Raw) != raw {
		t.Errorf("media bytes changed across serialization:\nwant %s\ngot  %s", raw, media.Raw)
	}
}
