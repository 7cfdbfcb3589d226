package markdown

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dagtalk/dagtalk"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

type renderer struct {
	bold       lipgloss.Style
	italic     lipgloss.Style
	heading    lipgloss.Style
	inlineCode lipgloss.Style
	muted      lipgloss.Style
	link       lipgloss.Style
}

func newRenderer(theme dagtalk.Theme) *renderer {
	return &renderer{
		bold:       lipgloss.NewStyle().Bold(true),
		italic:     lipgloss.NewStyle().Italic(true),
		heading:    lipgloss.NewStyle().Foreground(ansiColor(theme.Accent)).Bold(true),
		inlineCode: lipgloss.NewStyle().Foreground(ansiColor(theme.Accent)),
		muted:      lipgloss.NewStyle().Foreground(ansiColor(theme.Muted)).Faint(true),
		link:       lipgloss.NewStyle().Underline(true),
	}
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}

func (r *renderer) render(source []byte, width int) string {
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))
	return r.blocks(doc, source, width)
}

// blocks renders every child block of node and joins them with blank lines.
func (r *renderer) blocks(node ast.Node, source []byte, width int) string {
	var parts []string
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		if s := r.block(c, source, width); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

func (r *renderer) block(node ast.Node, source []byte, width int) string {
	switch n := node.(type) {
	case *ast.Paragraph:
		return wrap(r.inline(n, source), width)

	case *ast.Heading:
		return wrap(r.heading.Render(r.inline(n, source)), width)

	case *ast.FencedCodeBlock:
		return r.code(n.Lines(), source, string(n.Language(source)))

	case *ast.CodeBlock:
		return r.code(n.Lines(), source, "")

	case *ast.List:
		return r.list(n, source, width, 0)

	case *ast.Blockquote:
		return r.quote(n, source, width)

	case *ast.ThematicBreak:
		return r.muted.Render("---")

	case *ast.HTMLBlock:
		return strings.TrimRight(r.raw(n.Lines(), source), "\n")

	default:
		// Anything unrecognized renders as its children, unstyled.
		return r.blocks(node, source, width)
	}
}

// code renders code lines behind a gutter without reflow. Wrapping code
// would change its meaning, so long lines stay long.
func (r *renderer) code(lines *text.Segments, source []byte, lang string) string {
	var b strings.Builder
	if lang != "" {
		b.WriteString(r.muted.Render(lang))
		b.WriteString("\n")
	}
	gutter := r.muted.Render("│") + " "
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		b.WriteString(gutter)
		b.WriteString(strings.TrimRight(string(line.Value(source)), "\n"))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (r *renderer) raw(lines *text.Segments, source []byte) string {
	var b strings.Builder
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		b.Write(line.Value(source))
	}
	return b.String()
}

func (r *renderer) quote(node ast.Node, source []byte, width int) string {
	inner := width - 2
	if inner < 10 {
		inner = 10
	}
	mark := r.muted.Render(">") + " "
	lines := strings.Split(r.blocks(node, source, inner), "\n")
	for i, line := range lines {
		lines[i] = mark + line
	}
	return strings.Join(lines, "\n")
}

func (r *renderer) list(node *ast.List, source []byte, width, depth int) string {
	num := node.Start
	var lines []string
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		item, ok := c.(*ast.ListItem)
		if !ok {
			continue
		}
		marker := "- "
		if node.IsOrdered() {
			marker = fmt.Sprintf("%d. ", num)
			num++
		}
		lines = append(lines, r.listItem(item, source, width, depth, marker)...)
	}
	return strings.Join(lines, "\n")
}

// listItem renders one item as a prefixed first line plus hang-indented
// continuation lines. Nested lists recurse one depth level down and handle
// their own indentation.
func (r *renderer) listItem(item ast.Node, source []byte, width, depth int, marker string) []string {
	prefix := strings.Repeat("  ", depth) + marker
	hang := strings.Repeat(" ", len(prefix))
	itemWidth := width - len(prefix)
	if itemWidth < 10 {
		itemWidth = 10
	}

	var lines []string
	first := true
	for b := item.FirstChild(); b != nil; b = b.NextSibling() {
		var body string
		switch n := b.(type) {
		case *ast.List:
			lines = append(lines, strings.Split(r.list(n, source, width, depth+1), "\n")...)
			first = false
			continue
		case *ast.Paragraph, *ast.TextBlock:
			body = wrap(r.inline(n, source), itemWidth)
		default:
			body = r.block(n, source, itemWidth)
		}
		for _, line := range strings.Split(body, "\n") {
			if first {
				lines = append(lines, prefix+line)
				first = false
			} else {
				lines = append(lines, hang+line)
			}
		}
	}
	return lines
}

// inline renders the styled inline content of a block node's children.
func (r *renderer) inline(node ast.Node, source []byte) string {
	var b strings.Builder
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		r.inlineNode(c, source, &b)
	}
	return b.String()
}

func (r *renderer) inlineNode(node ast.Node, source []byte, b *strings.Builder) {
	switch n := node.(type) {
	case *ast.Text:
		b.Write(n.Segment.Value(source))
		if n.SoftLineBreak() {
			b.WriteByte(' ')
		}
		if n.HardLineBreak() {
			b.WriteByte('\n')
		}

	case *ast.String:
		b.Write(n.Value)

	case *ast.Emphasis:
		// Triple emphasis parses as nested nodes, so only levels 1 and 2
		// occur here.
		inner := r.inline(n, source)
		if n.Level == 1 {
			b.WriteString(r.italic.Render(inner))
		} else {
			b.WriteString(r.bold.Render(inner))
		}

	case *ast.CodeSpan:
		b.WriteString(r.inlineCode.Render(r.inline(n, source)))

	case *ast.Link:
		b.WriteString(r.link.Render(r.inline(n, source)))
		b.WriteString(" ")
		b.WriteString(r.muted.Render("(" + string(n.Destination) + ")"))

	case *ast.AutoLink:
		b.WriteString(r.link.Render(string(n.URL(source))))

	case *ast.Image:
		b.WriteString(r.link.Render(r.inline(n, source)))
		b.WriteString(" ")
		b.WriteString(r.muted.Render("(" + string(n.Destination) + ")"))

	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			b.Write(seg.Value(source))
		}

	default:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			r.inlineNode(c, source, b)
		}
	}
}

func wrap(s string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(s)
}
