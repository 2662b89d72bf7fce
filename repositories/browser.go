package repositories

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"amplify-bot/domain"
	"amplify-bot/services"
)

// ChromeBrowser implements services.Browser on top of chromedp. One shared
// main tab is reused for the conversation list and panes; isolated tabs
// are opened strictly around a single candidate.
type ChromeBrowser struct {
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	main          *ChromePage
}

// NewChromeBrowser launches a Chrome instance and attaches the main tab.
func NewChromeBrowser(ctx context.Context, headless bool) (*ChromeBrowser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.NoSandbox,
		chromedp.WindowSize(1550, 720),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Force the browser process to start before cookies are installed.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &ChromeBrowser{
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		main:          &ChromePage{ctx: browserCtx, scroller: domain.ChatScroller},
	}, nil
}

func (b *ChromeBrowser) MainPage() services.Page { return b.main }

// NewPage opens an isolated tab in the same browser profile.
func (b *ChromeBrowser) NewPage(ctx context.Context) (services.Page, error) {
	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	return &ChromePage{ctx: tabCtx, cancel: cancel}, nil
}

// SetCookies installs the parsed credential cookies into the profile.
func (b *ChromeBrowser) SetCookies(cookies []domain.Cookie) error {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		switch c.SameSite {
		case "Lax":
			p.SameSite = network.CookieSameSiteLax
		case "Strict":
			p.SameSite = network.CookieSameSiteStrict
		case "None":
			p.SameSite = network.CookieSameSiteNone
		}
		params = append(params, p)
	}

	return chromedp.Run(b.browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		return storage.SetCookies(params).Do(ctx)
	}))
}

func (b *ChromeBrowser) Close() {
	b.browserCancel()
	b.allocCancel()
}

// ChromePage is one tab. scroller, when set, names the pane whose offset
// the scroll operations target; otherwise the window scrolls.
type ChromePage struct {
	ctx      context.Context
	cancel   context.CancelFunc
	scroller string
}

func (p *ChromePage) Navigate(_ context.Context, url string) error {
	return chromedp.Run(p.ctx, chromedp.Navigate(url))
}

func (p *ChromePage) Reload(_ context.Context) error {
	return chromedp.Run(p.ctx, chromedp.Reload())
}

func (p *ChromePage) WaitVisible(_ context.Context, selector string, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	if err := chromedp.Run(tctx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return &domain.UIError{Stage: "wait_visible", Selector: selector, Err: err}
	}
	return nil
}

func (p *ChromePage) QueryAll(_ context.Context, selector string) ([]services.Element, error) {
	var nodes []*cdp.Node
	err := chromedp.Run(p.ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		return nil, &domain.UIError{Stage: "query_all", Selector: selector, Err: err}
	}

	elements := make([]services.Element, 0, len(nodes))
	for _, node := range nodes {
		elements = append(elements, &ChromeElement{page: p, id: node.NodeID})
	}
	return elements, nil
}

func (p *ChromePage) HasText(_ context.Context, text string) (bool, error) {
	var found bool
	script := fmt.Sprintf(`document.body ? document.body.innerText.includes(%q) : false`, text)
	if err := chromedp.Run(p.ctx, chromedp.Evaluate(script, &found)); err != nil {
		return false, err
	}
	return found, nil
}

func (p *ChromePage) ScrollOffset(_ context.Context) (float64, error) {
	var offset float64
	script := fmt.Sprintf(
		`(() => { const el = document.querySelector(%q); return el ? el.scrollTop : window.scrollY; })()`,
		p.scroller)
	if err := chromedp.Run(p.ctx, chromedp.Evaluate(script, &offset)); err != nil {
		return 0, err
	}
	return offset, nil
}

func (p *ChromePage) ScrollUp(_ context.Context) error {
	script := fmt.Sprintf(
		`(() => { const el = document.querySelector(%q);
		          if (el) { el.scrollBy(0, -el.clientHeight); } else { window.scrollBy(0, -window.innerHeight); } })()`,
		p.scroller)
	return chromedp.Run(p.ctx, chromedp.Evaluate(script, nil))
}

func (p *ChromePage) ScrollDown(_ context.Context) error {
	return chromedp.Run(p.ctx, chromedp.Evaluate(`window.scrollBy(0, window.innerHeight)`, nil))
}

func (p *ChromePage) Type(_ context.Context, selector, text string) error {
	if err := chromedp.Run(p.ctx,
		chromedp.Click(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	); err != nil {
		return &domain.UIError{Stage: "type", Selector: selector, Err: err}
	}
	return nil
}

func (p *ChromePage) Close() error {
	if p.cancel != nil {
		p.cancel()
	}
	return nil
}

// ChromeElement is a node handle. It stays valid until the page navigates
// or reloads, after which any operation fails with a UIError.
type ChromeElement struct {
	page *ChromePage
	id   cdp.NodeID
}

func (e *ChromeElement) ID() string {
	return strconv.FormatInt(int64(e.id), 10)
}

func (e *ChromeElement) Text(_ context.Context) (string, error) {
	var text string
	err := chromedp.Run(e.page.ctx, chromedp.Text([]cdp.NodeID{e.id}, &text, chromedp.ByNodeID))
	if err != nil {
		return "", &domain.UIError{Stage: "element_text", Err: err}
	}
	return text, nil
}

func (e *ChromeElement) Attr(_ context.Context, name string) (string, bool, error) {
	var value string
	var ok bool
	err := chromedp.Run(e.page.ctx, chromedp.AttributeValue([]cdp.NodeID{e.id}, name, &value, &ok, chromedp.ByNodeID))
	if err != nil {
		return "", false, &domain.UIError{Stage: "element_attr", Selector: name, Err: err}
	}
	return value, ok, nil
}

func (e *ChromeElement) OuterHTML(_ context.Context) (string, error) {
	var html string
	err := chromedp.Run(e.page.ctx, chromedp.OuterHTML([]cdp.NodeID{e.id}, &html, chromedp.ByNodeID))
	if err != nil {
		return "", &domain.UIError{Stage: "element_html", Err: err}
	}
	return html, nil
}

func (e *ChromeElement) Box(_ context.Context) (domain.Box, error) {
	var box domain.Box
	err := chromedp.Run(e.page.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		model, err := dom.GetBoxModel().WithNodeID(e.id).Do(ctx)
		if err != nil {
			return err
		}
		// Content is a quad of 4 corner points: x1,y1,...,x4,y4.
		quad := model.Content
		if len(quad) < 8 {
			return fmt.Errorf("unexpected box quad of length %d", len(quad))
		}
		box = domain.Box{
			Left:   quad[0],
			Top:    quad[1],
			Right:  quad[0],
			Bottom: quad[1],
		}
		for i := 0; i+1 < len(quad); i += 2 {
			if quad[i] < box.Left {
				box.Left = quad[i]
			}
			if quad[i] > box.Right {
				box.Right = quad[i]
			}
			if quad[i+1] < box.Top {
				box.Top = quad[i+1]
			}
			if quad[i+1] > box.Bottom {
				box.Bottom = quad[i+1]
			}
		}
		return nil
	}))
	if err != nil {
		return domain.Box{}, &domain.UIError{Stage: "element_box", Err: err}
	}
	return box, nil
}

func (e *ChromeElement) Click(_ context.Context) error {
	err := chromedp.Run(e.page.ctx, chromedp.Click([]cdp.NodeID{e.id}, chromedp.ByNodeID))
	if err != nil {
		return &domain.UIError{Stage: "element_click", Err: err}
	}
	return nil
}
