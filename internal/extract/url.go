package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/temoto/robotstxt"
	"golang.org/x/net/html"

	"multirag/internal/domain"
)

// URLExtractor fetches a web page and returns its visible text.
type URLExtractor struct {
	client        *http.Client
	userAgent     string
	respectRobots bool
}

// NewURLExtractor builds the extractor; a nil client gets one with the configured timeout.
func NewURLExtractor(cfg Config, client *http.Client) *URLExtractor {
	cfg = cfg.withDefaults()
	if client == nil {
		client = &http.Client{Timeout: cfg.URLTimeout}
	}
	return &URLExtractor{client: client, userAgent: cfg.UserAgent, respectRobots: cfg.RespectRobots}
}

func (e *URLExtractor) Modality() string { return ModalityURL }

// Extract treats rawURL as an http(s) address and returns the page text as one page.
func (e *URLExtractor) Extract(ctx context.Context, rawURL string) ([]string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: not an http(s) url: %q", domain.ErrUnsupportedInput, rawURL)
	}
	if e.respectRobots {
		allowed, err := e.allowed(ctx, u)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("fetch %s: %w", rawURL, ErrDisallowedByRobots)
		}
	}
	resp, err := e.get(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: received non-200 status code: %d", rawURL, resp.StatusCode)
	}
	text, err := visibleText(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing error: %w", err)
	}
	return []string{text}, nil
}

func (e *URLExtractor) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	return e.client.Do(req)
}

func (e *URLExtractor) allowed(ctx context.Context, u *url.URL) (bool, error) {
	robotsURL := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/robots.txt"}).String()
	resp, err := e.get(ctx, robotsURL)
	if err != nil {
		return false, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()
	robots, err := robotstxt.FromResponse(resp)
	if err != nil {
		return false, fmt.Errorf("failed to parse robots.txt: %w", err)
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return robots.TestAgent(path, e.userAgent), nil
}

// visibleText collects text tokens outside script and style elements.
func visibleText(body io.Reader) (string, error) {
	tokenizer := html.NewTokenizer(body)
	var b strings.Builder
	skip := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if tokenizer.Err() == io.EOF {
				return strings.Join(strings.Fields(b.String()), " "), nil
			}
			return "", tokenizer.Err()
		case html.StartTagToken:
			if name, _ := tokenizer.TagName(); isHidden(string(name)) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := tokenizer.TagName(); isHidden(string(name)) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(tokenizer.Text())
				b.WriteByte(' ')
			}
		}
	}
}

func isHidden(tag string) bool {
	return tag == "script" || tag == "style" || tag == "noscript"
}
