package extract

import (
	"regexp"
	"strings"
)

var (
	scriptBlockRe = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	styleBlockRe  = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style\s*>`)
	anchorRe      = regexp.MustCompile(`(?is)<a\b[^>]*?[\s"']href\s*=\s*["']([^"']+)["'][^>]*>(.*?)</a\s*>`)
	autolinkRe    = regexp.MustCompile(`<((?:https?|mailto):[^\s<>]+)>`)
	blockBreakRe  = regexp.MustCompile(`(?i)<\s*(?:br|hr)\b[^>]*>|<\s*/\s*(?:p|div|li|tr|h[1-6]|blockquote|table)\s*>`)
	// Only markup-shaped spans count as tags, so "a < b and c > d" survives.
	tagRe      = regexp.MustCompile(`(?s)<!--.*?-->|</?[a-zA-Z][^<>]*>|<![^<>]*>`)
	spaceRunRe = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)
	blankRunRe = regexp.MustCompile(`\n{3,}`)
)

var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#039;", "'",
	"&#39;", "'",
)

// Render converts an HTML or plain-text body to readable text. Anchors keep
// their target as "text [href]" so link context survives.
func Render(raw string) string {
	s := scriptBlockRe.ReplaceAllString(raw, "")
	s = styleBlockRe.ReplaceAllString(s, "")
	s = anchorRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := anchorRe.FindStringSubmatch(m)
		href := cleanURL(entityReplacer.Replace(sub[1]))
		text := strings.TrimSpace(collapseSpaces(tagRe.ReplaceAllString(sub[2], " ")))
		if text == "" {
			return " [" + href + "] "
		}
		return text + " [" + href + "]"
	})
	s = autolinkRe.ReplaceAllString(s, "[$1]")
	s = blockBreakRe.ReplaceAllString(s, "\n")
	s = tagRe.ReplaceAllString(s, " ")
	s = entityReplacer.Replace(s)
	return collapseWhitespace(s)
}

func collapseSpaces(s string) string {
	return spaceRunRe.ReplaceAllString(s, " ")
}

// collapseWhitespace squeezes runs of spaces on each line and keeps at most
// one blank line between paragraphs.
func collapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(collapseSpaces(line))
	}
	s = strings.Join(lines, "\n")
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

var headerArtifactRe = regexp.MustCompile(`(?im)^[ \t>-]*(?:Forwarded message|From:|Date:|Subject:|To:).*$`)

// StripHeaderArtifacts removes forwarded-message banners and quoted header lines.
func StripHeaderArtifacts(s string) string {
	s = headerArtifactRe.ReplaceAllString(s, "")
	return collapseWhitespace(s)
}
