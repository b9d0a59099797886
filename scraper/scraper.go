package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

const (
	maxContentRunes = 100_000
	maxBodyBytes    = 5 << 20
)

// ErrNoContent is returned when a page yields no readable text.
var ErrNoContent = errors.New("no readable content")

// Article is the readable part of a web page.
type Article struct {
	URL   string
	Title string
	Text  string
}

// ReadabilityScraper fetches pages and extracts the article with
// go-readability, falling back to plain paragraph text.
type ReadabilityScraper struct {
	Client  *http.Client
	Timeout time.Duration
}

// NewReadabilityScraper creates a new scraper with a timeout.
func NewReadabilityScraper(timeout time.Duration) *ReadabilityScraper {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ReadabilityScraper{Client: &http.Client{}, Timeout: timeout}
}

// Fetch downloads rawURL and extracts its title and text.
func (s *ReadabilityScraper) Fetch(ctx context.Context, rawURL string) (Article, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return Article{}, fmt.Errorf("invalid URL: %q", rawURL)
	}

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return Article{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; fake-news-detector/1.0)")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Article{}, fmt.Errorf("fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Article{}, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Article{}, fmt.Errorf("read body: %w", err)
	}

	article := Article{URL: parsed.String()}
	if parsedArticle, err := readability.FromReader(bytes.NewReader(body), parsed); err == nil {
		article.Title = strings.TrimSpace(parsedArticle.Title)
		article.Text = strings.TrimSpace(parsedArticle.TextContent)
	}
	if article.Title == "" || article.Text == "" {
		title, text, err := extractFallback(body)
		if err != nil {
			return Article{}, err
		}
		if article.Title == "" {
			article.Title = title
		}
		if article.Text == "" {
			article.Text = text
		}
	}
	if article.Title == "" && article.Text == "" {
		return Article{}, ErrNoContent
	}
	article.Text = truncate(article.Text, maxContentRunes)
	return article, nil
}

// extractFallback reads og:title or <title> and the page paragraphs.
func extractFallback(body []byte) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("parse html: %w", err)
	}
	title := strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", ""))
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	var paragraphs []string
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		if p := strings.Join(strings.Fields(sel.Text()), " "); p != "" {
			paragraphs = append(paragraphs, p)
		}
	})
	return title, strings.Join(paragraphs, "\n\n"), nil
}

func truncate(input string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(input) <= limit {
		return input
	}
	runes := []rune(input)
	if len(runes) <= limit {
		return input
	}
	return string(runes[:limit])
}
