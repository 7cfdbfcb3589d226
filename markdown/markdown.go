// Package markdown renders markdown text to ANSI-styled terminal output
// using goldmark for parsing and lipgloss for styling. Resolver
// explanations arrive as markdown; this keeps them readable in a terminal
// without pulling in a full document renderer.
package markdown

import "github.com/dagtalk/dagtalk"

// Render parses markdown source and returns ANSI-styled terminal output.
// Paragraphs and list items are word-wrapped to width. Code blocks keep
// their original line breaks. A non-positive width falls back to 80.
func Render(source string, width int, theme dagtalk.Theme) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	return newRenderer(theme).render([]byte(source), width)
}
