package dagtalk

// Theme defines semantic color mappings using ANSI color indices (0-15).
// The user's terminal theme determines the actual RGB values, so the app
// automatically matches any color scheme.
type Theme struct {
	Instruction int // instruction echo accent
	Intent      int // intent card header
	Error       int // error messages
	Success     int // successful run states
	Running     int // queued and running states
	Muted       int // status bar, placeholders, raw values
	CodeBg      int // code block background
	Accent      int // headings, links
}

// DefaultTheme returns the default ANSI color mapping.
func DefaultTheme() Theme {
	return Theme{
		Instruction: 4,
		Intent:      3,
		Error:       1,
		Success:     2,
		Running:     6,
		Muted:       8,
		CodeBg:      0,
		Accent:      5,
	}
}
