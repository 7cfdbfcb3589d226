// Package colorlog provides a colored slog.Handler for terminal output.
//
// Lines render as a padded level tag, the component name in magenta
// brackets, the message in blue, and attributes as key=value pairs. Color
// is controlled by the fatih/color package, so NO_COLOR and non-terminal
// output degrade to plain text.
package colorlog

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Interface compliance check.
var _ slog.Handler = (*Handler)(nil)

var (
	debugColor     = color.New(color.FgHiBlack)
	infoColor      = color.New(color.FgGreen)
	warnColor      = color.New(color.FgYellow)
	errorColor     = color.New(color.FgRed)
	componentColor = color.New(color.FgMagenta)
	messageColor   = color.New(color.FgBlue)
	keyColor       = color.New(color.FgCyan)
)

// Options configures a [Handler].
type Options struct {
	// Level reports the minimum record level that will be logged.
	// Defaults to slog.LevelInfo.
	Level slog.Leveler
}

// Handler writes colored, human-oriented log lines. No timestamps: the
// handler is meant for interactive console output, not log files.
type Handler struct {
	mu     *sync.Mutex
	out    io.Writer
	level  slog.Leveler
	attrs  []slog.Attr // keys already carry the group prefix
	prefix string      // dotted group prefix for record attrs
}

// NewHandler creates a [Handler] writing to out.
func NewHandler(out io.Writer, opts *Options) *Handler {
	h := &Handler{
		mu:  &sync.Mutex{},
		out: out,
	}
	if opts != nil {
		h.level = opts.Level
	}
	return h
}

// New returns a logger writing colored lines to out at the given level.
func New(out io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewHandler(out, &Options{Level: level}))
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	min := slog.LevelInfo
	if h.level != nil {
		min = h.level.Level()
	}
	return level >= min
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var (
		b         strings.Builder
		component string
		attrs     []slog.Attr
	)

	for _, a := range h.attrs {
		if a.Key == "component" {
			component = a.Value.String()
			continue
		}
		attrs = append(attrs, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		if h.prefix == "" && a.Key == "component" {
			component = a.Value.String()
			return true
		}
		attrs = appendAttr(attrs, h.prefix, a)
		return true
	})

	b.WriteString(levelColor(r.Level).Sprintf("%-5s", levelTag(r.Level)))
	if component != "" {
		b.WriteString(" ")
		b.WriteString(componentColor.Sprintf("[%s]", component))
	}
	b.WriteString(" ")
	b.WriteString(messageColor.Sprint(r.Message))
	for _, a := range attrs {
		b.WriteString(" ")
		b.WriteString(keyColor.Sprint(a.Key + "="))
		b.WriteString(a.Value.String())
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := h.clone()
	for _, a := range attrs {
		h2.attrs = appendAttr(h2.attrs, h.prefix, a)
	}
	return h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := h.clone()
	h2.prefix = h.prefix + name + "."
	return h2
}

func (h *Handler) clone() *Handler {
	return &Handler{
		mu:     h.mu,
		out:    h.out,
		level:  h.level,
		attrs:  h.attrs[:len(h.attrs):len(h.attrs)],
		prefix: h.prefix,
	}
}

// appendAttr resolves a, flattens group values into dotted keys and drops
// empty attrs.
func appendAttr(attrs []slog.Attr, prefix string, a slog.Attr) []slog.Attr {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return attrs
	}
	if a.Value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if a.Key != "" {
			groupPrefix = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			attrs = appendAttr(attrs, groupPrefix, ga)
		}
		return attrs
	}
	a.Key = prefix + a.Key
	return append(attrs, a)
}

func levelTag(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERROR"
	case l >= slog.LevelWarn:
		return "WARN"
	case l >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

func levelColor(l slog.Level) *color.Color {
	switch {
	case l >= slog.LevelError:
		return errorColor
	case l >= slog.LevelWarn:
		return warnColor
	case l >= slog.LevelInfo:
		return infoColor
	default:
		return debugColor
	}
}
