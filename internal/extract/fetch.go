package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	fetchUserAgent  = "Mozilla/5.0 (compatible; EmailPodcastBot/1.0)"
	fetchTimeout    = 10 * time.Second
	maxRedirects    = 5
	maxPageBytes    = 2 << 20
	defaultMaxChars = 5000
)

// WebFetcher downloads a page and reduces it to its main text.
type WebFetcher struct {
	client   *http.Client
	maxChars int
}

// FetcherOption customizes a WebFetcher.
type FetcherOption func(*WebFetcher)

// WithFetchClient replaces the HTTP client. Its redirect policy is kept as given.
func WithFetchClient(client *http.Client) FetcherOption {
	return func(f *WebFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithMaxChars caps the returned text length.
func WithMaxChars(n int) FetcherOption {
	return func(f *WebFetcher) {
		if n > 0 {
			f.maxChars = n
		}
	}
}

// NewWebFetcher returns a fetcher with a 10s timeout that follows at most
// five redirects.
func NewWebFetcher(opts ...FetcherOption) *WebFetcher {
	f := &WebFetcher{
		client: &http.Client{
			Timeout: fetchTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		maxChars: defaultMaxChars,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch implements Fetcher.
func (f *WebFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("failed to fetch %s: status %d", url, resp.StatusCode)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	isHTML := strings.Contains(contentType, "text/html")
	if !isHTML && !strings.Contains(contentType, "text/plain") {
		return "", fmt.Errorf("invalid content type: %q", contentType)
	}

	body := io.LimitReader(resp.Body, maxPageBytes)
	var text string
	if isHTML {
		text, err = mainText(body)
		if err != nil {
			return "", fmt.Errorf("failed to parse %s: %w", url, err)
		}
	} else {
		raw, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", url, err)
		}
		text = string(raw)
	}

	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return "", errors.New("page has no text content")
	}
	if runes := []rune(text); len(runes) > f.maxChars {
		text = string(runes[:f.maxChars]) + "..."
	}
	return text, nil
}

// mainText prefers the first <article> or <main> element and falls back to
// the whole document.
func mainText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}
	root := findFirst(doc, atom.Article)
	if root == nil {
		root = findFirst(doc, atom.Main)
	}
	if root == nil {
		root = doc
	}

	var sb strings.Builder
	collectText(root, &sb)
	return sb.String(), nil
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Svg, atom.Head:
			return
		}
	}
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}
