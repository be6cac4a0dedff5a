package listing

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"news_pusher/internal/domain"
)

// ParserConfig describes how news links are recognised on the page.
type ParserConfig struct {
	// BaseURL resolves relative hrefs into absolute links.
	BaseURL string
	// LinkPattern must match the href; its first capture group is the item id.
	LinkPattern string
	// SkipKeywords drops anchors whose title contains any of them.
	SkipKeywords []string
}

// Parser extracts news items from a listing page.
type Parser struct {
	base         *url.URL
	linkPattern  *regexp.Regexp
	skipKeywords []string
}

// NewParser compiles the link pattern and base URL.
func NewParser(cfg ParserConfig) (*Parser, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	re, err := regexp.Compile(cfg.LinkPattern)
	if err != nil {
		return nil, fmt.Errorf("compile link pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("link pattern %q has no capture group for the id", cfg.LinkPattern)
	}

	var keywords []string
	for _, k := range cfg.SkipKeywords {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}

	return &Parser{
		base:         base,
		linkPattern:  re,
		skipKeywords: keywords,
	}, nil
}

// Parse returns items in page order. Anchors without an id or a title are
// skipped; repeated ids are kept as they appear.
func (p *Parser) Parse(page []byte) ([]domain.NewsItem, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("%w: read html: %w", domain.ErrParse, err)
	}

	var items []domain.NewsItem

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		m := p.linkPattern.FindStringSubmatch(href)
		if m == nil || m[1] == "" {
			return
		}

		title := a.AttrOr("title", "")
		if strings.TrimSpace(title) == "" {
			title = a.Text()
		}
		title = collapseSpace(title)
		if title == "" || p.skipped(title) {
			return
		}

		items = append(items, domain.NewsItem{
			ID:    m[1],
			Title: title,
			Link:  p.resolve(href),
		})
	})

	return items, nil
}

func (p *Parser) skipped(title string) bool {
	for _, k := range p.skipKeywords {
		if strings.Contains(title, k) {
			return true
		}
	}
	return false
}

func (p *Parser) resolve(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return p.base.ResolveReference(ref).String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
