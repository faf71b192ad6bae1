// Package render produces reminder email bodies. The engine treats it
// as an opaque collaborator; nothing downstream inspects the output.
package render

import (
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"wishloop/internal/campaign"
	"wishloop/internal/db"
)

// MaxProducts caps the product grid, matching what fits a two-column
// email layout.
const MaxProducts = 6

// Config holds the storefront URLs injected into every template.
type Config struct {
	// BaseURL is the storefront root, e.g. https://shop.example.com.
	BaseURL string

	LogoURL        string
	PlaceholderImg string
}

type product struct {
	Title    string
	URL      string
	ImageURL string
}

type templateData struct {
	Products     []product
	WishlistLink string
	LogoURL      string
	Year         int
}

// Renderer renders per-stage HTML templates with a product card grid
// and a wishlist link.
type Renderer struct {
	cfg       Config
	templates map[string]*template.Template
}

// New parses every stage's template file up front so a missing or
// broken template fails the run before any sends.
func New(cfg Config, stages []campaign.Stage) (*Renderer, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("base url %q must include scheme and host", cfg.BaseURL)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	templates := make(map[string]*template.Template, len(stages))
	for _, st := range stages {
		tmpl, err := template.ParseFiles(st.Template)
		if err != nil {
			return nil, fmt.Errorf("parse template for stage %q: %w", st.Key, err)
		}
		templates[st.Key] = tmpl
	}

	return &Renderer{cfg: cfg, templates: templates}, nil
}

// Render produces the HTML and plain-text bodies for one wishlist.
func (r *Renderer) Render(stageKey string, wishlistID int64, products []*db.Product) (html, text string, err error) {
	tmpl, ok := r.templates[stageKey]
	if !ok {
		return "", "", fmt.Errorf("no template for stage %q", stageKey)
	}

	if len(products) > MaxProducts {
		products = products[:MaxProducts]
	}

	data := templateData{
		WishlistLink: r.WishlistLink(wishlistID),
		LogoURL:      r.cfg.LogoURL,
		Year:         time.Now().Year(),
	}
	for _, p := range products {
		img := p.ImageURL
		if img == "" {
			img = r.cfg.PlaceholderImg
		}
		data.Products = append(data.Products, product{
			Title:    p.Title,
			URL:      fmt.Sprintf("%s/?post_type=product&p=%d", r.cfg.BaseURL, p.ID),
			ImageURL: img,
		})
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("execute template for stage %q: %w", stageKey, err)
	}

	return buf.String(), r.plainText(wishlistID), nil
}

// WishlistLink builds the deep link back into the shopper's wishlist.
func (r *Renderer) WishlistLink(wishlistID int64) string {
	return fmt.Sprintf("%s/wishlist/?wl=%d", r.cfg.BaseURL, wishlistID)
}

// plainText is the multipart/alternative fallback; spam filters score
// HTML-only mail harder.
func (r *Renderer) plainText(wishlistID int64) string {
	return fmt.Sprintf(
		"Hi,\n\nYou left products in your wishlist. Pick up where you left off:\n%s\n\nThanks.",
		r.WishlistLink(wishlistID),
	)
}
