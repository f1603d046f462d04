// Package routing maps path prefixes to upstream API base URLs.
package routing

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ErrNoRoute is returned when no route prefix matches the request path.
var ErrNoRoute = errors.New("no upstream route matches path")

// defaultRoutes maps path prefixes to upstream base URLs when the config
// file provides no [routes] table.
var defaultRoutes = map[string]string{
	"/anthropic":   "https://api.anthropic.com",
	"/claude":      "https://api.anthropic.com",
	"/cerebras":    "https://api.cerebras.ai",
	"/cohere":      "https://api.cohere.ai",
	"/discord":     "https://discord.com/api",
	"/fireworks":   "https://api.fireworks.ai",
	"/gemini":      "https://generativelanguage.googleapis.com",
	"/github":      "https://api.github.com",
	"/groq":        "https://api.groq.com/openai",
	"/huggingface": "https://api-inference.huggingface.co",
	"/meta":        "https://www.meta.ai/api",
	"/novita":      "https://api.novita.ai",
	"/nvidia":      "https://integrate.api.nvidia.com",
	"/oaipro":      "https://api.oaipro.com",
	"/openai":      "https://api.openai.com",
	"/openrouter":  "https://openrouter.ai/api",
	"/portkey":     "https://api.portkey.ai",
	"/reka":        "https://api.reka.ai",
	"/telegram":    "https://api.telegram.org",
	"/together":    "https://api.together.xyz",
	"/xai":         "https://api.x.ai",
}

// Entry is one prefix→upstream mapping in the route table.
type Entry struct {
	Prefix string
	Base   *url.URL
}

// Target is a resolved upstream destination for a single request.
type Target struct {
	Prefix string
	Base   *url.URL
	Rest   string // request path with the matched prefix removed
}

// Table resolves request paths to upstream targets by longest-prefix match.
// It is immutable after construction and safe for concurrent use.
type Table struct {
	entries []Entry // sorted by prefix length, longest first
}

// DefaultRoutes returns a copy of the built-in route map.
func DefaultRoutes() map[string]string {
	routes := make(map[string]string, len(defaultRoutes))
	for prefix, target := range defaultRoutes {
		routes[prefix] = target
	}
	return routes
}

// NewTable builds a route table from a prefix→base-URL map.
// An empty or nil map selects the built-in default routes.
func NewTable(routes map[string]string) (*Table, error) {
	if len(routes) == 0 {
		routes = defaultRoutes
	}

	entries := make([]Entry, 0, len(routes))
	for prefix, target := range routes {
		if !strings.HasPrefix(prefix, "/") {
			return nil, fmt.Errorf("route prefix %q must start with '/'", prefix)
		}
		u, err := url.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("route %s: parse target %q: %w", prefix, target, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("route %s: target %q must use http or https", prefix, target)
		}
		entries = append(entries, Entry{
			Prefix: strings.TrimSuffix(prefix, "/"),
			Base:   u,
		})
	}

	// Longest prefix first so /openai/v2 wins over /openai; ties broken
	// lexicographically for deterministic iteration.
	sort.Slice(entries, func(i, j int) bool {
		if len(entries[i].Prefix) != len(entries[j].Prefix) {
			return len(entries[i].Prefix) > len(entries[j].Prefix)
		}
		return entries[i].Prefix < entries[j].Prefix
	})

	return &Table{entries: entries}, nil
}

// Resolve matches path against the table and returns the upstream target.
// A prefix matches only at a path-segment boundary: /openai matches /openai
// and /openai/v1/chat but not /openaix.
func (t *Table) Resolve(path string) (*Target, error) {
	for _, e := range t.entries {
		if path == e.Prefix {
			return &Target{Prefix: e.Prefix, Base: e.Base, Rest: ""}, nil
		}
		if strings.HasPrefix(path, e.Prefix+"/") {
			return &Target{Prefix: e.Prefix, Base: e.Base, Rest: path[len(e.Prefix):]}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoRoute, path)
}

// Entries returns the table's entries, longest prefix first.
func (t *Table) Entries() []Entry {
	return t.entries
}

// Len returns the number of routes in the table.
func (t *Table) Len() int {
	return len(t.entries)
}

// Label returns a bounded path label for metrics: the matched route prefix,
// or "other" for unroutable paths.
func (t *Table) Label(path string) string {
	for _, e := range t.entries {
		if path == e.Prefix || strings.HasPrefix(path, e.Prefix+"/") {
			return e.Prefix
		}
	}
	return "other"
}

// URL builds the full upstream URL for the target: the base URL joined with
// the remaining request path, carrying the original query string.
func (tg *Target) URL(query url.Values) string {
	u := *tg.Base
	if tg.Rest != "" {
		u.Path = strings.TrimSuffix(u.Path, "/") + tg.Rest
	}
	u.RawQuery = query.Encode()
	return u.String()
}
