package handler

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"

	"api-proxy-go/internal/routing"
)

// SiteHandler serves the static landing pages: the HTML route index and
// robots.txt. Neither is ever forwarded upstream.
type SiteHandler struct {
	indexHTML string
}

// NewSiteHandler creates a SiteHandler with the index page rendered once
// from the route table.
func NewSiteHandler(routes *routing.Table) *SiteHandler {
	return &SiteHandler{indexHTML: renderIndex(routes)}
}

// Index serves the HTML listing of configured routes.
func (h *SiteHandler) Index(c echo.Context) error {
	return c.HTML(http.StatusOK, h.indexHTML)
}

// Robots disallows all crawlers; the proxy serves APIs, not pages.
func (h *SiteHandler) Robots(c echo.Context) error {
	return c.String(http.StatusOK, "User-agent: *\nDisallow: /\n")
}

func renderIndex(routes *routing.Table) string {
	entries := append([]routing.Entry(nil), routes.Entries()...)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Prefix < entries[j].Prefix
	})

	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html>
<head>
    <title>API Proxy Service</title>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
               max-width: 960px; margin: 0 auto; padding: 20px; line-height: 1.6; }
        h1 { border-bottom: 2px solid #007acc; padding-bottom: 10px; }
        li { margin: 5px 0; padding: 10px; background: #f8f9fa;
             border-left: 4px solid #007acc; list-style: none; }
        a { text-decoration: none; color: #007acc; font-weight: bold; }
    </style>
</head>
<body>
    <h1>API Proxy Service</h1>
    <p>Available API endpoints:</p>
    <ul>
`)
	for _, e := range entries {
		fmt.Fprintf(&b, "      <li><a href=%q>%s</a> &rarr; %s</li>\n", e.Prefix, e.Prefix, e.Base)
	}
	b.WriteString(`    </ul>
</body>
</html>`)
	return b.String()
}
