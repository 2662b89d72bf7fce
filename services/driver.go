package services

import (
	"context"
	"time"

	"amplify-bot/domain"
)

// Consumer-side interfaces over the browser driver. The chromedp
// implementation lives in repositories; tests substitute testify mocks.

// Element is an opaque handle to one on-screen element. It is valid only
// until the owning page navigates or reloads. ID identifies the underlying
// node within the current document, so repeated queries can recognize an
// element they have already returned.
type Element interface {
	ID() string
	Text(ctx context.Context) (string, error)
	Attr(ctx context.Context, name string) (string, bool, error)
	OuterHTML(ctx context.Context) (string, error)
	Box(ctx context.Context) (domain.Box, error)
	Click(ctx context.Context) error
}

// Page is one browser tab.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	HasText(ctx context.Context, text string) (bool, error)
	ScrollOffset(ctx context.Context) (float64, error)
	ScrollUp(ctx context.Context) error
	ScrollDown(ctx context.Context) error
	Type(ctx context.Context, selector, text string) error
	Close() error
}

// Browser owns the shared main page and can open isolated tabs around a
// single candidate.
type Browser interface {
	MainPage() Page
	NewPage(ctx context.Context) (Page, error)
}
