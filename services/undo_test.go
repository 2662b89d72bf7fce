package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"amplify-bot/domain"
	"amplify-bot/logging"
)

// atomicElement tolerates concurrent clicks from the undo fan-out.
type atomicElement struct {
	stubElement
	clicked int64
}

func (a *atomicElement) Click(context.Context) error {
	atomic.AddInt64(&a.clicked, 1)
	return nil
}

// undoPage serves a fixed sequence of undo-button pages, then none.
type undoPage struct {
	mu         sync.Mutex
	pages      [][]Element
	confirm    *atomicElement
	scrolls    int
	waitErr    error
	queryCalls int
}

func (p *undoPage) Navigate(context.Context, string) error { return nil }

func (p *undoPage) Reload(context.Context) error { return nil }

func (p *undoPage) WaitVisible(_ context.Context, selector string, _ time.Duration) error {
	if selector == domain.ProfileColumn {
		return p.waitErr
	}
	return nil
}

func (p *undoPage) QueryAll(_ context.Context, selector string) ([]Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch selector {
	case domain.UndoMarker:
		p.queryCalls++
		if len(p.pages) == 0 {
			return nil, nil
		}
		buttons := p.pages[0]
		p.pages = p.pages[1:]
		return buttons, nil
	case domain.UndoConfirm:
		return []Element{p.confirm}, nil
	}
	return nil, nil
}

func (p *undoPage) HasText(context.Context, string) (bool, error) { return false, nil }

func (p *undoPage) ScrollOffset(context.Context) (float64, error) { return 0, nil }

func (p *undoPage) ScrollUp(context.Context) error { return nil }

func (p *undoPage) ScrollDown(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scrolls++
	return nil
}

func (p *undoPage) Type(context.Context, string, string) error { return nil }

func (p *undoPage) Close() error { return nil }

func TestUndoAll_ClicksUntilNoneRemain(t *testing.T) {
	page := &undoPage{
		pages: [][]Element{
			{&atomicElement{}, &atomicElement{}},
			{&atomicElement{}},
		},
		confirm: &atomicElement{},
	}

	svc := NewUndoService(logging.NewNop(), 0)
	total, err := svc.UndoAll(context.Background(), page)

	assert.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, int64(3), atomic.LoadInt64(&page.confirm.clicked))
	assert.Equal(t, 2, page.scrolls)
	// Two button pages plus the final empty query.
	assert.Equal(t, 3, page.queryCalls)
}

func TestUndoAll_NothingToUndo(t *testing.T) {
	page := &undoPage{confirm: &atomicElement{}}

	svc := NewUndoService(logging.NewNop(), 0)
	total, err := svc.UndoAll(context.Background(), page)

	assert.NoError(t, err)
	assert.Zero(t, total)
	assert.Zero(t, page.scrolls)
}

func TestUndoAll_ProfileNeverLoads(t *testing.T) {
	page := &undoPage{waitErr: errors.New("context deadline exceeded"), confirm: &atomicElement{}}

	svc := NewUndoService(logging.NewNop(), 0)
	total, err := svc.UndoAll(context.Background(), page)

	assert.Error(t, err)
	assert.Zero(t, total)
}
