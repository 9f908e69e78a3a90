package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ideamans/go-l10n"
)

// Formatter converts a Summary to text.
type Formatter interface {
	Format(summary *Summary) (string, error)
}

// FormatFunc is a function adapter for the Formatter interface.
type FormatFunc func(summary *Summary) (string, error)

// Format implements the Formatter interface.
func (f FormatFunc) Format(summary *Summary) (string, error) {
	return f(summary)
}

// FormatterFor returns the formatter for a format name: "markdown" or "json".
func FormatterFor(name string) (Formatter, error) {
	switch strings.ToLower(name) {
	case "", "md", "markdown":
		return NewMarkdownFormatter(), nil
	case "json":
		return NewJSONFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown report format %q", name)
	}
}

// NewJSONFormatter returns an indented JSON formatter.
func NewJSONFormatter() Formatter {
	return FormatFunc(func(s *Summary) (string, error) {
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal summary: %w", err)
		}
		return string(data) + "\n", nil
	})
}

// NewMarkdownFormatter returns a formatter producing a Markdown report.
func NewMarkdownFormatter() Formatter {
	return FormatFunc(formatMarkdown)
}

func formatMarkdown(s *Summary) (string, error) {
	var b strings.Builder
	row := func(k, v string) {
		fmt.Fprintf(&b, "| %s | %s |\n", l10n.T(k), v)
	}
	section := func(title string) {
		fmt.Fprintf(&b, "## %s\n\n| %s | %s |\n|------|-------|\n", l10n.T(title), l10n.T("Item"), l10n.T("Value"))
	}

	fmt.Fprintf(&b, "# %s\n\n", l10n.T("Playback Summary"))
	fmt.Fprintf(&b, "%s: %s\n\n", l10n.T("Generated"), s.GeneratedAt.Format(time.RFC3339))

	section("Input")
	row("File", s.Input.Path)
	row("Streams", fmt.Sprintf("%d", s.Input.Streams))
	b.WriteString("\n")

	section("Video Stream")
	row("Index", fmt.Sprintf("%d", s.Stream.Index))
	row("Codec", s.Stream.Codec)
	row("Size", fmt.Sprintf("%dx%d", s.Stream.Width, s.Stream.Height))
	row("Time base", s.Stream.TimeBase)
	b.WriteString("\n")

	p := s.Playback
	mode := l10n.T("unpaced")
	if p.Paced {
		mode = l10n.T("paced")
	}
	section("Playback")
	row("Mode", mode)
	row("Frames delivered", fmt.Sprintf("%d", p.FramesDelivered))
	row("Frames decoded", fmt.Sprintf("%d", p.FramesDecoded))
	row("Packets read", fmt.Sprintf("%d", p.PacketsRead))
	row("Packets discarded", fmt.Sprintf("%d", p.PacketsDiscarded))
	row("Media duration", formatMs(p.MediaDurationMs))
	row("Wall duration", formatMs(p.WallDurationMs))
	if p.Paced {
		row("Late frames", fmt.Sprintf("%d", p.LateFrames))
		row("Max lateness", formatMs(p.MaxLatenessMs))
		row("Mean lateness", formatMs(p.MeanLatenessMs))
	}
	if p.OutOfOrder > 0 {
		row("Out-of-order frames", fmt.Sprintf("%d", p.OutOfOrder))
	}
	return b.String(), nil
}

func formatMs(v float64) string {
	return fmt.Sprintf("%.1f ms", v)
}
