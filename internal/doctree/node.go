package doctree

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// MaxDepth bounds nesting so a hostile document cannot exhaust the stack.
const MaxDepth = 256

// ErrInvalidTree indicates a structurally inconsistent document.
var ErrInvalidTree = errors.New("invalid document tree")

// Node kinds produced by the editor.
const (
	KindDoc            = "doc"
	KindParagraph      = "paragraph"
	KindHeading        = "heading"
	KindBulletList     = "bulletList"
	KindOrderedList    = "orderedList"
	KindListItem       = "listItem"
	KindTaskList       = "taskList"
	KindTaskItem       = "taskItem"
	KindBlockquote     = "blockquote"
	KindCodeBlock      = "codeBlock"
	KindTable          = "table"
	KindTableRow       = "tableRow"
	KindTableCell      = "tableCell"
	KindTableHeader    = "tableHeader"
	KindImage          = "image"
	KindLink           = "link"
	KindHardBreak      = "hardBreak"
	KindHorizontalRule = "horizontalRule"
	KindMath           = "math"
	KindMathInline     = "mathInline"
	KindMathBlock      = "mathBlock"
	KindYoutube        = "youtube"
	KindVideo          = "video"
	KindText           = "text"
)

// Mark kinds.
const (
	MarkBold      = "bold"
	MarkItalic    = "italic"
	MarkUnderline = "underline"
	MarkStrike    = "strike"
	MarkCode      = "code"
	MarkTextStyle = "textStyle"
	MarkHighlight = "highlight"
	MarkLink      = "link"
	MarkTextAlign = "textAlign"
)

// leafKinds never carry children.
var leafKinds = map[string]bool{
	KindText:           true,
	KindImage:          true,
	KindHardBreak:      true,
	KindHorizontalRule: true,
	KindMath:           true,
	KindMathInline:     true,
	KindMathBlock:      true,
	KindYoutube:        true,
	KindVideo:          true,
}

// Node is one element of a structured document. Children are owned by
// their parent; documents are trees, never graphs.
type Node struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
	Content []*Node        `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
}

// Mark annotates a text run (or, for textAlign, a block).
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Parse decodes a JSON document tree.
func Parse(data []byte) (*Node, error) {
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return &n, nil
}

// IsEmpty reports whether the node carries no document at all.
func (n *Node) IsEmpty() bool {
	return n == nil || (n.Type == "" && n.Text == "" && len(n.Content) == 0)
}

// Validate checks the tree for structural errors without rendering it.
func (n *Node) Validate() error {
	return validate(n, 0)
}

func validate(n *Node, depth int) error {
	if n == nil {
		return nil
	}
	if depth > MaxDepth {
		return fmt.Errorf("%w: nesting exceeds %d levels", ErrInvalidTree, MaxDepth)
	}
	if n.Type == "" {
		return fmt.Errorf("%w: node without type at depth %d", ErrInvalidTree, depth)
	}
	if leafKinds[n.Type] && len(n.Content) > 0 {
		return fmt.Errorf("%w: %q node cannot have children", ErrInvalidTree, n.Type)
	}
	for _, c := range n.Content {
		if err := validate(c, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// AttrString returns a string attribute, or "" when absent or not a scalar.
func (n *Node) AttrString(key string) string {
	return attrString(n.Attrs, key)
}

// AttrInt returns an integer attribute. JSON numbers decode as float64 and
// some editors store numbers as strings; both are accepted.
func (n *Node) AttrInt(key string) (int, bool) {
	return attrInt(n.Attrs, key)
}

// AttrBool returns a boolean attribute.
func (n *Node) AttrBool(key string) bool {
	if n.Attrs == nil {
		return false
	}
	switch v := n.Attrs[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

// HasMark reports whether the node carries a mark of the given type.
func (n *Node) HasMark(kind string) (Mark, bool) {
	for _, m := range n.Marks {
		if m.Type == kind {
			return m, true
		}
	}
	return Mark{}, false
}

// AttrString returns a string attribute of the mark.
func (m Mark) AttrString(key string) string {
	return attrString(m.Attrs, key)
}

func attrString(attrs map[string]any, key string) string {
	if attrs == nil {
		return ""
	}
	switch v := attrs[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

func attrInt(attrs map[string]any, key string) (int, bool) {
	if attrs == nil {
		return 0, false
	}
	switch v := attrs[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case string:
		i, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}
