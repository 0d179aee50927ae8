// Package admingate decides whether the widget is running inside the
// merchant's own admin surface rather than a real storefront page.
// Showing a capture popup to the operator is far worse than suppressing
// one for a shopper, so the gate fails closed: any matching heuristic,
// or any heuristic that errors, blocks the widget entirely.
package admingate

import (
	"net/url"
	"strings"
)

// Snapshot is everything the heuristics look at, captured up front so
// the gate is a pure predicate.
type Snapshot struct {
	Hostname string
	Path     string
	// Framed is true when the page runs inside an iframe.
	Framed bool
	// ParentReadFailed is true when reading the parent frame's location
	// threw, which on the web means a cross-origin (admin-embedding)
	// frame.
	ParentReadFailed bool
	// AdminMarkers counts admin-only DOM markers found on the page.
	AdminMarkers int
	Query        url.Values
}

// Heuristic inspects a snapshot. A match or an error both block.
type Heuristic func(Snapshot) (bool, error)

const adminHost = "admin.shopify.com"

var adminQueryParams = []string{"hmac", "embedded", "id_token"}

func AdminHostname(s Snapshot) (bool, error) {
	return strings.EqualFold(s.Hostname, adminHost), nil
}

func AdminPath(s Snapshot) (bool, error) {
	return strings.Contains(s.Path, "/admin"), nil
}

func CrossOriginFrame(s Snapshot) (bool, error) {
	return s.Framed && s.ParentReadFailed, nil
}

func AdminDOMMarkers(s Snapshot) (bool, error) {
	return s.AdminMarkers > 0, nil
}

func AdminQueryParams(s Snapshot) (bool, error) {
	for _, param := range adminQueryParams {
		if s.Query.Has(param) {
			return true, nil
		}
	}
	return false, nil
}

// Defaults is the heuristic set the widget arms with.
var Defaults = []Heuristic{
	AdminHostname,
	AdminPath,
	CrossOriginFrame,
	AdminDOMMarkers,
	AdminQueryParams,
}

// Blocked reports whether the widget must stay dormant on this page.
func Blocked(s Snapshot, heuristics ...Heuristic) bool {
	if len(heuristics) == 0 {
		heuristics = Defaults
	}
	for _, h := range heuristics {
		matched, err := h(s)
		if err != nil || matched {
			return true
		}
	}
	return false
}
