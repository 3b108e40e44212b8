package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"albumscan/pkg/capture"
	errs "albumscan/pkg/errors"
	"albumscan/pkg/identity"
	"albumscan/pkg/logger"
	"albumscan/pkg/models"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

const elementsScript = `(() => Array.from(document.images).map(img => {
	const r = img.getBoundingClientRect();
	return {
		src: img.currentSrc || img.src || "",
		naturalWidth: img.naturalWidth,
		naturalHeight: img.naturalHeight,
		x: r.left, y: r.top, width: r.width, height: r.height
	};
}))()`

const viewportScript = `({width: window.innerWidth, height: window.innerHeight})`

const findControlScript = `((sels) => {
	for (const s of sels) {
		try { if (document.querySelector(s)) return s; } catch (e) {}
	}
	return "";
})(%s)`

const activateScript = `((s) => {
	const el = document.querySelector(s);
	if (!el) return false;
	el.click();
	return true;
})(%s)`

// fetchScript reads the resource with the page's cookies and returns it as a data URL
const fetchScript = `(async (u) => {
	const res = await fetch(u, {credentials: "include"});
	if (!res.ok) return {status: res.status, type: "", data: ""};
	const blob = await res.blob();
	const data = await new Promise((resolve, reject) => {
		const fr = new FileReader();
		fr.onloadend = () => resolve(fr.result);
		fr.onerror = () => reject(fr.error);
		fr.readAsDataURL(blob);
	});
	return {status: res.status, type: blob.type, data: data};
})(%s)`

type pageElement struct {
	Src           string  `json:"src"`
	NaturalWidth  int     `json:"naturalWidth"`
	NaturalHeight int     `json:"naturalHeight"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
}

func (e pageElement) model() models.Element {
	return models.Element{
		Src:           e.Src,
		NaturalWidth:  e.NaturalWidth,
		NaturalHeight: e.NaturalHeight,
		Rect:          models.Rect{X: e.X, Y: e.Y, Width: e.Width, Height: e.Height},
	}
}

type fetchResult struct {
	Status int    `json:"status"`
	Type   string `json:"type"`
	Data   string `json:"data"`
}

// Session is one open viewer tab. It satisfies the engine's page surface.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc
	url    string
	logger logger.Logger
}

// URL returns the address the tab was opened on
func (s *Session) URL() string {
	return s.url
}

// run executes actions on the tab, aborting when either ctx or the tab ends
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	tctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(tctx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (s *Session) evalJSON(ctx context.Context, script string, out interface{}, opts ...chromedp.EvaluateOption) error {
	var raw []byte
	if err := s.run(ctx, chromedp.Evaluate(script, &raw, opts...)); err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// QueryParam reads a query parameter of the current address
func (s *Session) QueryParam(ctx context.Context, name string) (string, error) {
	var loc string
	if err := s.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", errs.New(errs.ErrorTypeBrowser, "read location", err)
	}
	return identity.New(name).WeakKeyFromURL(loc), nil
}

// Elements lists the image elements with their on-screen rectangles
func (s *Session) Elements(ctx context.Context) ([]models.Element, error) {
	var found []pageElement
	if err := s.evalJSON(ctx, elementsScript, &found); err != nil {
		return nil, errs.New(errs.ErrorTypeBrowser, "list images", err)
	}
	out := make([]models.Element, len(found))
	for i, e := range found {
		out[i] = e.model()
	}
	return out, nil
}

// Viewport reads the layout viewport size
func (s *Session) Viewport(ctx context.Context) (models.Viewport, error) {
	var vp models.Viewport
	if err := s.evalJSON(ctx, viewportScript, &vp); err != nil {
		return models.Viewport{}, errs.New(errs.ErrorTypeBrowser, "read viewport", err)
	}
	return vp, nil
}

// FindControl returns the first selector that matches an element, or ""
func (s *Session) FindControl(ctx context.Context, selectors []string) (string, error) {
	script, err := withArg(findControlScript, selectors)
	if err != nil {
		return "", err
	}
	var found string
	if err := s.run(ctx, chromedp.Evaluate(script, &found)); err != nil {
		return "", errs.New(errs.ErrorTypeBrowser, "find control", err)
	}
	return found, nil
}

// Activate clicks the element matching selector
func (s *Session) Activate(ctx context.Context, selector string) error {
	script, err := withArg(activateScript, selector)
	if err != nil {
		return err
	}
	var clicked bool
	if err := s.run(ctx, chromedp.Evaluate(script, &clicked)); err != nil {
		return errs.New(errs.ErrorTypeNavigation, "activate "+selector, err)
	}
	if !clicked {
		return errs.New(errs.ErrorTypeNavigation, "control disappeared: "+selector, nil)
	}
	return nil
}

// Fetch retrieves url from inside the page so the viewer's session applies
func (s *Session) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	script, err := withArg(fetchScript, url)
	if err != nil {
		return nil, "", err
	}
	var res fetchResult
	err = s.evalJSON(ctx, script, &res, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	})
	if err != nil {
		return nil, "", errs.New(errs.ErrorTypeFetch, "in-page fetch", err)
	}
	return decodeFetchResult(res)
}

func decodeFetchResult(res fetchResult) ([]byte, string, error) {
	if res.Status < 200 || res.Status > 299 {
		return nil, "", errs.New(errs.ErrorTypeFetch, fmt.Sprintf("unexpected status %d", res.Status), nil)
	}
	mimeType, data, err := capture.DecodeDataURI(res.Data)
	if err != nil {
		return nil, "", err
	}
	if res.Type != "" {
		mimeType = res.Type
	}
	return data, mimeType, nil
}

// Close closes the tab
func (s *Session) Close() {
	s.cancel()
}

// withArg fills a script template with a JSON-encoded argument
func withArg(script string, arg interface{}) (string, error) {
	b, err := json.Marshal(arg)
	if err != nil {
		return "", fmt.Errorf("encode script argument: %w", err)
	}
	return fmt.Sprintf(script, b), nil
}
