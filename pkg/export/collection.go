package export

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"albumscan/pkg/handoff"
	"albumscan/pkg/models"
)

// ErrNothingSelected is returned by writers when no item is selected
var ErrNothingSelected = errors.New("no images selected")

// DefaultLowResThreshold is the edge length below which an item is flagged
const DefaultLowResThreshold = 600

// Aspect is a coarse orientation label
type Aspect string

const (
	Landscape Aspect = "Landscape"
	Square    Aspect = "Square"
	Portrait  Aspect = "Portrait"
)

// Item is one captured asset as presented for export
type Item struct {
	Asset    models.CapturedAsset
	Selected bool
	Rotation int
}

// ByteSize estimates the decoded size from the data URI length
func (it Item) ByteSize() int {
	return int(math.Round(float64(len(it.Asset.Payload)) * 0.75))
}

// LowRes reports whether either edge is below threshold
func (it Item) LowRes(threshold int) bool {
	return it.Asset.Width < threshold || it.Asset.Height < threshold
}

// Aspect labels the item's orientation as captured
func (it Item) Aspect() Aspect {
	switch {
	case it.Asset.Width > it.Asset.Height:
		return Landscape
	case it.Asset.Width == it.Asset.Height:
		return Square
	default:
		return Portrait
	}
}

// Stats summarizes the selection
type Stats struct {
	Selected      int
	Total         int
	SelectedBytes int
}

func (s Stats) String() string {
	return fmt.Sprintf("%d/%d selected, %s", s.Selected, s.Total, FormatBytes(int64(s.SelectedBytes)))
}

// Collection is an ordered, editable set of captured items. Every item
// starts selected, in capture order.
type Collection struct {
	SessionID string
	SourceURL string

	mu     sync.RWMutex
	items  []Item
	lowRes int
}

// NewCollection wraps assets in capture order
func NewCollection(assets []models.CapturedAsset, lowResThreshold int) *Collection {
	if lowResThreshold <= 0 {
		lowResThreshold = DefaultLowResThreshold
	}
	items := make([]Item, len(assets))
	for i, a := range assets {
		items[i] = Item{Asset: a, Selected: true, Rotation: normalizeRotation(a.Rotation)}
	}
	return &Collection{items: items, lowRes: lowResThreshold}
}

// Load takes the bundle stored under key; the stored copy is cleared
func Load(ctx context.Context, store handoff.Store, key string, lowResThreshold int) (*Collection, error) {
	b, err := store.Take(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load collection %s: %w", key, err)
	}
	c := NewCollection(b.Assets, lowResThreshold)
	c.SessionID = b.SessionID
	c.SourceURL = b.SourceURL
	return c, nil
}

// Len returns the number of items
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Items returns a copy of the items in current order
func (c *Collection) Items() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Item(nil), c.items...)
}

// LowRes reports whether item i is below the low-resolution threshold
func (c *Collection) LowRes(i int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i < 0 || i >= len(c.items) {
		return false
	}
	return c.items[i].LowRes(c.lowRes)
}

func (c *Collection) check(i int) error {
	if i < 0 || i >= len(c.items) {
		return fmt.Errorf("index %d out of range [0,%d)", i, len(c.items))
	}
	return nil
}

// Move relocates item i to position j, shifting the items between
func (c *Collection) Move(i, j int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(i); err != nil {
		return err
	}
	if err := c.check(j); err != nil {
		return err
	}
	if i == j {
		return nil
	}
	it := c.items[i]
	if i < j {
		copy(c.items[i:j], c.items[i+1:j+1])
	} else {
		copy(c.items[j+1:i+1], c.items[j:i])
	}
	c.items[j] = it
	return nil
}

// Rotate turns item i by degrees, which must be a multiple of 90
func (c *Collection) Rotate(i, degrees int) error {
	if degrees%90 != 0 {
		return fmt.Errorf("rotation must be a multiple of 90, got %d", degrees)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(i); err != nil {
		return err
	}
	c.items[i].Rotation = normalizeRotation(c.items[i].Rotation + degrees)
	return nil
}

// Toggle flips the selection of item i
func (c *Collection) Toggle(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(i); err != nil {
		return err
	}
	c.items[i].Selected = !c.items[i].Selected
	return nil
}

// SelectAll selects every item
func (c *Collection) SelectAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		c.items[i].Selected = true
	}
}

// Invert flips every item's selection
func (c *Collection) Invert() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		c.items[i].Selected = !c.items[i].Selected
	}
}

// Selected returns the selected items in current order
func (c *Collection) Selected() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Item
	for _, it := range c.items {
		if it.Selected {
			out = append(out, it)
		}
	}
	return out
}

// Stats counts the selection
func (c *Collection) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Stats{Total: len(c.items)}
	for _, it := range c.items {
		if it.Selected {
			s.Selected++
			s.SelectedBytes += it.ByteSize()
		}
	}
	return s
}

func normalizeRotation(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}

// FormatBytes renders a size in B, KB or MB with one decimal
func FormatBytes(bytes int64) string {
	const unit = 1024
	switch {
	case bytes <= 0:
		return "0 B"
	case bytes < unit:
		return fmt.Sprintf("%d B", bytes)
	case bytes < unit*unit:
		return trimZero(float64(bytes)/unit) + " KB"
	default:
		return trimZero(float64(bytes)/(unit*unit)) + " MB"
	}
}

func trimZero(v float64) string {
	s := fmt.Sprintf("%.1f", v)
	if len(s) > 2 && s[len(s)-2:] == ".0" {
		return s[:len(s)-2]
	}
	return s
}
