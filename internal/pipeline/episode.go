package pipeline

import (
	"net/mail"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// previewLength is the number of characters of source text kept on the episode.
const previewLength = 500

var dateLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2006-01-02 15:04:05",
}

// parseEmailDate reads the Date header, falling back to now when it is
// missing or unparseable.
func parseEmailDate(raw string, now time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now
	}
	if t, err := mail.ParseDate(raw); err == nil {
		return t
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return now
}

// contentPreview strips control and non-printable characters and truncates
// to previewLength characters.
func contentPreview(content string) string {
	var sb strings.Builder
	sb.Grow(len(content))
	count := 0
	truncated := false
	for _, r := range content {
		if r == utf8.RuneError {
			continue
		}
		if r == '\r' {
			continue
		}
		if r != '\n' && r != '\t' && !unicode.IsPrint(r) {
			continue
		}
		if count == previewLength {
			truncated = true
			break
		}
		sb.WriteRune(r)
		count++
	}
	out := strings.TrimSpace(sb.String())
	if truncated {
		out += "..."
	}
	return out
}

func describe(from string, date time.Time) string {
	return "Email from " + from + " received on " + date.Format("Jan 2, 2006")
}
