package extract

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

const ctaPhrases = `continue reading|read more|view article|full article|read online|keep reading|read the full|read it here`

var (
	// A call-to-action phrase followed within 200 characters by a URL.
	ctaNearURLRe = regexp.MustCompile(`(?is)(?:` + ctaPhrases + `)[\s\S]{0,200}?(https?://[^\s"'<>]+)`)
	ctaTextRe    = regexp.MustCompile(`(?i)(?:` + ctaPhrases + `)`)
	articleURLRe = regexp.MustCompile(`(?i)https?://(?:[a-z0-9-]+\.)*linkedin\.com/pulse/[^\s"'<>]+`)
)

var blockedExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
	".svg": true, ".ico": true, ".bmp": true, ".tif": true, ".tiff": true,
	".mp3": true, ".mp4": true, ".mov": true, ".wav": true, ".m4a": true,
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".zip": true,
}

var blockedFragments = []string{
	"unsubscribe",
	"tracking",
	"/track/",
	"/click",
	"preferences",
	"manage-subscription",
	"list-manage.com",
	"campaign-archive",
	"optout",
	"opt-out",
	"pixel",
	"beacon",
	"/open?",
	"mailto:",
}

// Candidates returns article links found in raw, in priority order: phrase
// followed by a URL, anchors whose text is a call to action, then known
// newsletter article URLs. Duplicates and non-article links are dropped.
func Candidates(raw string) []string {
	var found []string

	for _, m := range ctaNearURLRe.FindAllStringSubmatch(raw, -1) {
		found = append(found, m[1])
	}
	for _, m := range anchorRe.FindAllStringSubmatch(raw, -1) {
		text := tagRe.ReplaceAllString(m[2], " ")
		if ctaTextRe.MatchString(entityReplacer.Replace(text)) {
			found = append(found, m[1])
		}
	}
	found = append(found, articleURLRe.FindAllString(raw, -1)...)

	seen := make(map[string]bool, len(found))
	out := make([]string, 0, len(found))
	for _, link := range found {
		link = cleanURL(entityReplacer.Replace(link))
		if link == "" || seen[link] {
			continue
		}
		seen[link] = true
		if !IsArticleLink(link) {
			continue
		}
		out = append(out, link)
	}
	return out
}

// IsArticleLink reports whether link may point at readable article text.
func IsArticleLink(link string) bool {
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	if blockedExtensions[strings.ToLower(path.Ext(u.Path))] {
		return false
	}
	lower := strings.ToLower(link)
	for _, fragment := range blockedFragments {
		if strings.Contains(lower, fragment) {
			return false
		}
	}
	return true
}

func cleanURL(link string) string {
	return strings.TrimRight(strings.TrimSpace(link), `.,;:!?)]}>'"`)
}
