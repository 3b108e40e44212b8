package navigator

import (
	"context"
	"errors"
	"sync"

	"albumscan/pkg/models"
)

// scriptedPage shows one frame at a time; every Activate moves to the next
// frame after `lag` further observations.
type scriptedPage struct {
	mu sync.Mutex

	frames      []frame
	pos         int
	lag         int
	pending     int
	hasNext     func(pos int) bool
	activations int
	failObserve int
}

type frame struct {
	weak string
	src  string
}

func (p *scriptedPage) current() frame {
	return p.frames[p.pos]
}

func (p *scriptedPage) tick() {
	if p.pending > 0 {
		p.pending--
		if p.pending == 0 && p.pos < len(p.frames)-1 {
			p.pos++
		}
	}
}

func (p *scriptedPage) QueryParam(ctx context.Context, name string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failObserve > 0 {
		p.failObserve--
		p.tick()
		return "", errors.New("execution context was destroyed")
	}
	p.tick()
	return p.current().weak, nil
}

func (p *scriptedPage) Elements(ctx context.Context) ([]models.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f := p.current()
	if f.src == "" {
		return nil, nil
	}
	return []models.Element{
		{Src: "https://cdn.test/avatar.jpg", Rect: models.Rect{X: 10, Y: 10, Width: 40, Height: 40}},
		{Src: f.src, NaturalWidth: 1024, NaturalHeight: 768, Rect: models.Rect{X: 100, Y: 100, Width: 800, Height: 600}},
	}, nil
}

func (p *scriptedPage) Viewport(ctx context.Context) (models.Viewport, error) {
	return models.Viewport{Width: 1000, Height: 800}, nil
}

func (p *scriptedPage) FindControl(ctx context.Context, selectors []string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hasNext != nil && !p.hasNext(p.pos) {
		return "", nil
	}
	return selectors[0], nil
}

func (p *scriptedPage) Activate(ctx context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activations++
	if p.pending == 0 {
		p.pending = p.lag + 1
	}
	return nil
}
