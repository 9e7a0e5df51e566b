package model

// Content is the body of an event. It is either legacy RawHTML awaiting
// migration or structured Blocks; a nil Content means the record has no body.
type Content interface {
	isContent()
}

// RawHTML is the legacy HTML body (wire field "htmlContent").
type RawHTML string

// Blocks is a rich-text body (wire field "content").
type Blocks []Block

func (RawHTML) isContent() {}
func (Blocks) isContent()  {}

// Rich-text node type names.
const (
	TypeBlock   = "block"
	TypeSpan    = "span"
	TypeLink    = "link"
	StyleNormal = "normal"
)

// Block is a paragraph, heading or list item.
type Block struct {
	Key      string    `json:"_key,omitempty"`
	Type     string    `json:"_type"`
	Style    string    `json:"style,omitempty"`
	ListItem string    `json:"listItem,omitempty"`
	Level    int       `json:"level,omitempty"`
	Children []Span    `json:"children"`
	MarkDefs []MarkDef `json:"markDefs"`
}

// Span is an inline run of text. Marks holds decorator names (strong, em,
// underline) and the keys of annotations in the parent block's MarkDefs.
type Span struct {
	Key   string   `json:"_key,omitempty"`
	Type  string   `json:"_type"`
	Text  string   `json:"text"`
	Marks []string `json:"marks"`
}

// MarkDef is an annotation referenced from span marks by key.
type MarkDef struct {
	Key  string `json:"_key,omitempty"`
	Type string `json:"_type"`
	Href string `json:"href,omitempty"`
}

// HasContent reports whether the event carries a non-empty body.
func (e *Event) HasContent() bool {
	switch c := e.Content.(type) {
	case RawHTML:
		return c != ""
	case Blocks:
		return len(c) > 0
	}
	return false
}

// LegacyHTML returns the HTML body and true when the event has not been
// migrated yet.
func (e *Event) LegacyHTML() (string, bool) {
	h, ok := e.Content.(RawHTML)
	return string(h), ok && h != ""
}
