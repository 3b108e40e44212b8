// Package identity derives the weak and strong keys of the item on display.
package identity

import (
	"net/url"

	"albumscan/pkg/models"
)

// DefaultParam is the query parameter carrying the viewer's item id
const DefaultParam = "fbid"

// Extractor builds ItemIdentity values. It never fails: unparseable input
// degrades to an empty weak key or an un-normalized strong key.
type Extractor struct {
	Param string
}

// New returns an extractor reading the given query parameter
func New(param string) *Extractor {
	if param == "" {
		param = DefaultParam
	}
	return &Extractor{Param: param}
}

// WeakKeyFromURL reads the extractor's parameter from a page URL
func (e *Extractor) WeakKeyFromURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	return u.Query().Get(e.Param)
}

// Normalize keeps only the path of a resource locator so CDN and
// cache-busting parameters do not split one image into several keys.
func Normalize(locator string) string {
	u, err := url.Parse(locator)
	if err != nil || u.Path == "" {
		return locator
	}
	return u.Path
}

// Identity combines a weak key with the active element, if any
func (e *Extractor) Identity(weakKey string, item *models.Element) models.ItemIdentity {
	id := models.ItemIdentity{WeakKey: weakKey}
	if item != nil && item.Src != "" {
		id.StrongKey = Normalize(item.Src)
	}
	return id
}
