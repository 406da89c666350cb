package doctree

import "strings"

// blockKinds end a line of plain text.
var blockKinds = map[string]bool{
	KindParagraph:      true,
	KindListItem:       true,
	KindTaskItem:       true,
	KindBlockquote:     true,
	KindCodeBlock:      true,
	KindTableRow:       true,
	KindTableCell:      true,
	KindTableHeader:    true,
	KindMathBlock:      true,
	KindHorizontalRule: true,
}

// PlainText derives readable text from the tree itself, independent of any
// HTML rendering. Heading text is left out: it is carried by the heading
// list. Unknown kinds are skipped, matching the renderer.
func PlainText(root *Node) string {
	var buf strings.Builder
	writePlain(&buf, root, 0)
	return NormalizeText(buf.String())
}

func writePlain(buf *strings.Builder, n *Node, depth int) {
	if n == nil || depth > MaxDepth {
		return
	}

	switch n.Type {
	case KindText:
		buf.WriteString(n.Text)
		return
	case KindHardBreak:
		buf.WriteString("\n")
		return
	case KindMath, KindMathInline, KindMathBlock:
		buf.WriteString(mathSource(n))
	case KindHeading, KindImage, KindYoutube, KindVideo:
		return
	case KindDoc, KindParagraph, KindBulletList, KindOrderedList, KindListItem,
		KindTaskList, KindTaskItem, KindBlockquote, KindCodeBlock, KindTable,
		KindTableRow, KindTableCell, KindTableHeader, KindLink, KindHorizontalRule:
		for _, c := range n.Content {
			writePlain(buf, c, depth+1)
		}
	default:
		return
	}

	if blockKinds[n.Type] {
		buf.WriteString("\n")
	}
}

// NormalizeText trims trailing space from every line, collapses runs of
// blank lines to one, and trims the result.
func NormalizeText(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
