// Package preview fetches a page and extracts what a saved link shows about
// it: title, description, image, favicon, site name and readable content.
package preview

import (
	"bytes"
	"net/url"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/pabliki/pabliki-server/internal/util"
)

// Preview is the metadata extracted from one page.
type Preview struct {
	URL         string    `json:"url"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"image,omitempty"`
	Favicon     string    `json:"favicon,omitempty"`
	SiteName    string    `json:"site_name,omitempty"`
	Content     string    `json:"content,omitempty"` // Markdown
	ReadingTime int       `json:"reading_time,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// MaxDescriptionLength bounds descriptions taken from meta tags.
const MaxDescriptionLength = 500

// Extract parses an HTML document served at pageURL.
func Extract(pageURL *url.URL, body []byte) (*Preview, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	p := &Preview{URL: pageURL.String()}

	p.Title = firstNonEmpty(
		metaContent(doc, "meta[property='og:title']"),
		metaContent(doc, "meta[name='twitter:title']"),
		strings.TrimSpace(doc.Find("title").First().Text()),
	)
	p.Description = util.Truncate(firstNonEmpty(
		metaContent(doc, "meta[property='og:description']"),
		metaContent(doc, "meta[name='description']"),
		metaContent(doc, "meta[name='twitter:description']"),
	), MaxDescriptionLength)
	p.Image = resolve(pageURL, firstNonEmpty(
		metaContent(doc, "meta[property='og:image']"),
		metaContent(doc, "meta[property='og:image:url']"),
		metaContent(doc, "meta[name='twitter:image']"),
	))
	p.Favicon = resolve(pageURL, firstNonEmpty(
		attr(doc, "link[rel~='icon']", "href"),
		attr(doc, "link[rel='apple-touch-icon']", "href"),
		"/favicon.ico",
	))
	p.SiteName = firstNonEmpty(
		metaContent(doc, "meta[property='og:site_name']"),
		strings.TrimPrefix(pageURL.Hostname(), "www."),
	)

	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil {
		if p.Title == "" {
			p.Title = strings.TrimSpace(article.Title)
		}
		if md := toMarkdown(article.Content); md != "" {
			p.Content = md
			p.ReadingTime = util.EstimateReadingTime(article.TextContent)
		}
	}

	return p, nil
}

func toMarkdown(html string) string {
	html = strings.TrimSpace(html)
	if html == "" {
		return ""
	}
	md, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(md)
}

func metaContent(doc *goquery.Document, selector string) string {
	return attr(doc, selector, "content")
}

func attr(doc *goquery.Document, selector, name string) string {
	v, _ := doc.Find(selector).First().Attr(name)
	return strings.TrimSpace(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// resolve makes ref absolute against base. Unparseable references are dropped.
func resolve(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}
