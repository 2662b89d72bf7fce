package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"amplify-bot/domain"
)

// Mocks

type MockPage struct {
	mock.Mock
}

func (m *MockPage) Navigate(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

func (m *MockPage) Reload(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockPage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	args := m.Called(ctx, selector, timeout)
	return args.Error(0)
}

func (m *MockPage) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	args := m.Called(ctx, selector)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Element), args.Error(1)
}

func (m *MockPage) HasText(ctx context.Context, text string) (bool, error) {
	args := m.Called(ctx, text)
	return args.Bool(0), args.Error(1)
}

func (m *MockPage) ScrollOffset(ctx context.Context) (float64, error) {
	args := m.Called(ctx)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockPage) ScrollUp(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockPage) ScrollDown(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockPage) Type(ctx context.Context, selector, text string) error {
	args := m.Called(ctx, selector, text)
	return args.Error(0)
}

func (m *MockPage) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockBrowser struct {
	mock.Mock
}

func (m *MockBrowser) MainPage() Page {
	args := m.Called()
	return args.Get(0).(Page)
}

func (m *MockBrowser) NewPage(ctx context.Context) (Page, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Page), args.Error(1)
}

// stubElement is a plain element handle for tests that would otherwise
// need dozens of mock expectations.
type stubElement struct {
	id       string
	text     string
	html     string
	href     string
	hasHref  bool
	aria     string
	box      domain.Box
	boxErr   error
	clickErr error
	clicks   int
}

func (s *stubElement) ID() string { return s.id }

func (s *stubElement) Text(context.Context) (string, error) { return s.text, nil }

func (s *stubElement) Attr(_ context.Context, name string) (string, bool, error) {
	switch name {
	case "href":
		return s.href, s.hasHref, nil
	case "aria-label":
		return s.aria, s.aria != "", nil
	}
	return "", false, nil
}

func (s *stubElement) OuterHTML(context.Context) (string, error) { return s.html, nil }

func (s *stubElement) Box(context.Context) (domain.Box, error) { return s.box, s.boxErr }

func (s *stubElement) Click(context.Context) error {
	s.clicks++
	return s.clickErr
}

// fakeRecorder counts tallies without prometheus.
type fakeRecorder struct {
	candidates       int
	amplified        int
	alreadyAmplified int
	failed           int
	conversations    int
	passes           int
}

func (r *fakeRecorder) RecordCandidates(n int)  { r.candidates += n }
func (r *fakeRecorder) RecordAmplified()        { r.amplified++ }
func (r *fakeRecorder) RecordAlreadyAmplified() { r.alreadyAmplified++ }
func (r *fakeRecorder) RecordFailed()           { r.failed++ }
func (r *fakeRecorder) RecordConversation()     { r.conversations++ }
func (r *fakeRecorder) RecordPass()             { r.passes++ }
