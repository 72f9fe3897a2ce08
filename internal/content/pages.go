// Package content serves the informational pages of the storefront from an
// embedded YAML document.
package content

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed pages.yaml
var pagesYAML []byte

// ErrPageNotFound is returned for unknown slugs.
var ErrPageNotFound = errors.New("page not found")

// Contact holds the store's contact details.
type Contact struct {
	Business string `yaml:"business" json:"business"`
	Address  string `yaml:"address" json:"address"`
	City     string `yaml:"city" json:"city"`
	WhatsApp string `yaml:"whatsapp" json:"whatsapp"`
	Email    string `yaml:"email" json:"email"`
	MapURL   string `yaml:"map_url" json:"map_url,omitempty"`
}

// Section is a titled block of text with an optional bullet list.
type Section struct {
	Heading    string   `yaml:"heading" json:"heading"`
	Paragraphs []string `yaml:"paragraphs" json:"paragraphs,omitempty"`
	Items      []string `yaml:"items" json:"items,omitempty"`
	Footer     []string `yaml:"footer" json:"footer,omitempty"`
}

// Page is one informational page.
type Page struct {
	Slug     string    `yaml:"slug" json:"slug"`
	Title    string    `yaml:"title" json:"title"`
	Contact  *Contact  `yaml:"contact" json:"contact,omitempty"`
	Sections []Section `yaml:"sections" json:"sections,omitempty"`
}

// Pages is an immutable slug-indexed page set.
type Pages struct {
	order []string
	pages map[string]Page
}

type document struct {
	Pages []Page `yaml:"pages"`
}

// Load parses the embedded pages.
func Load() (*Pages, error) {
	return Parse(pagesYAML)
}

// Parse builds a page set from a YAML document.
func Parse(data []byte) (*Pages, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse pages: %w", err)
	}

	p := &Pages{pages: make(map[string]Page, len(doc.Pages))}
	for i, page := range doc.Pages {
		if page.Slug == "" || page.Title == "" {
			return nil, fmt.Errorf("page %d: slug and title are required", i)
		}
		if _, dup := p.pages[page.Slug]; dup {
			return nil, fmt.Errorf("page %q is defined twice", page.Slug)
		}
		p.pages[page.Slug] = page
		p.order = append(p.order, page.Slug)
	}
	return p, nil
}

// Get returns the page at slug.
func (p *Pages) Get(slug string) (Page, error) {
	page, ok := p.pages[slug]
	if !ok {
		return Page{}, fmt.Errorf("%w: %s", ErrPageNotFound, slug)
	}
	return page, nil
}

// Slugs lists the pages in document order.
func (p *Pages) Slugs() []string {
	return append([]string(nil), p.order...)
}
