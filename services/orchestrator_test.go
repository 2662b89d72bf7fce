package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"amplify-bot/domain"
	"amplify-bot/logging"
)

func newTestOrchestrator(browser Browser, rec OutcomeRecorder) *Orchestrator {
	return NewOrchestrator(logging.NewNop(),
		WithBrowser(browser),
		WithCaptureEngine(NewCaptureEngine("Done", 2, 0, logging.NewNop())),
		WithExecutor(newTestExecutor()),
		WithBaseURL("https://x.com"),
		WithWatermarkText("Done"),
		WithMetrics(rec),
		WithOrchestratorSettle(0))
}

// expectOpenedConversation wires the main page so that index 0 resolves to
// conversation 12345 and the chat pane holds a single direct link.
func expectOpenedConversation(main *MockPage, anchors []Element) {
	entry := &stubElement{html: `<div><a href="/messages/12345"></a></div>`}

	main.On("Navigate", mock.Anything, mock.Anything).Return(nil)
	main.On("WaitVisible", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	main.On("QueryAll", mock.Anything, domain.ConversationSelectors[0]).Return([]Element{entry}, nil)
	main.On("ScrollOffset", mock.Anything).Return(500.0, nil)
	main.On("ScrollUp", mock.Anything).Return(nil)
	main.On("QueryAll", mock.Anything, domain.MessageSpan).Return([]Element{}, nil)
	main.On("QueryAll", mock.Anything, domain.EmbeddedPost).Return([]Element{}, nil)
	main.On("QueryAll", mock.Anything, domain.DirectAnchor).Return(anchors, nil)
}

func TestProcessConversation_AllAlreadyAmplifiedSkipsWatermark(t *testing.T) {
	anchor := &stubElement{id: "a1", href: "/abc/status/100", hasHref: true}

	main := new(MockPage)
	expectOpenedConversation(main, []Element{anchor})

	isolated := new(MockPage)
	isolated.On("Navigate", mock.Anything, "https://x.com/abc/status/100").Return(nil)
	isolated.On("QueryAll", mock.Anything, domain.UndoMarker).Return([]Element{&stubElement{id: "undo"}}, nil)
	isolated.On("Close").Return(nil)

	browser := new(MockBrowser)
	browser.On("MainPage").Return(main)
	browser.On("NewPage", mock.Anything).Return(isolated, nil)

	rec := &fakeRecorder{}
	summary := newTestOrchestrator(browser, rec).ProcessConversation(context.Background(), 0)

	assert.Equal(t, "12345", summary.ConversationID)
	assert.Equal(t, 1, summary.CandidatesFound)
	assert.Equal(t, 1, summary.AlreadyAmplified)
	assert.Zero(t, summary.Amplified)
	assert.Zero(t, summary.Failed)

	// Nothing new was amplified, so nothing gets marked as handled and the
	// next run rescans the same tail.
	main.AssertNotCalled(t, "Type", mock.Anything, mock.Anything, mock.Anything)
	isolated.AssertCalled(t, "Close")
	assert.Equal(t, 1, rec.conversations)
	assert.Equal(t, 1, rec.alreadyAmplified)
}

func TestProcessConversation_AmplifiedPostsWatermark(t *testing.T) {
	anchor := &stubElement{id: "a1", href: "/abc/status/100", hasHref: true}
	send := &stubElement{id: "send"}

	main := new(MockPage)
	expectOpenedConversation(main, []Element{anchor})
	main.On("Type", mock.Anything, domain.ComposerSelectors[0], "Done").Return(nil)
	main.On("QueryAll", mock.Anything, domain.ComposerSend).Return([]Element{send}, nil)

	primary := &stubElement{id: "primary"}
	confirm := &stubElement{id: "confirm"}

	isolated := new(MockPage)
	isolated.On("Navigate", mock.Anything, "https://x.com/abc/status/100").Return(nil)
	isolated.On("WaitVisible", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	isolated.On("QueryAll", mock.Anything, domain.UndoMarker).Return([]Element{}, nil)
	isolated.On("HasText", mock.Anything, mock.Anything).Return(false, nil)
	isolated.On("QueryAll", mock.Anything, domain.AmplifySelectors[0]).Return([]Element{primary}, nil)
	isolated.On("QueryAll", mock.Anything, domain.AmplifyConfirmSelectors[0]).Return([]Element{confirm}, nil)
	isolated.On("Close").Return(nil)

	browser := new(MockBrowser)
	browser.On("MainPage").Return(main)
	browser.On("NewPage", mock.Anything).Return(isolated, nil)

	rec := &fakeRecorder{}
	summary := newTestOrchestrator(browser, rec).ProcessConversation(context.Background(), 0)

	assert.Equal(t, 1, summary.Amplified)
	assert.Equal(t, 1, primary.clicks)
	assert.Equal(t, 1, confirm.clicks)
	assert.Equal(t, 1, send.clicks)
	main.AssertCalled(t, "Type", mock.Anything, domain.ComposerSelectors[0], "Done")
	assert.Equal(t, 1, rec.amplified)
}

func TestProcessConversation_IndexOutOfRange(t *testing.T) {
	main := new(MockPage)
	main.On("Navigate", mock.Anything, mock.Anything).Return(nil)
	main.On("WaitVisible", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	main.On("QueryAll", mock.Anything, mock.Anything).Return([]Element{}, nil)

	browser := new(MockBrowser)
	browser.On("MainPage").Return(main)

	rec := &fakeRecorder{}
	summary := newTestOrchestrator(browser, rec).ProcessConversation(context.Background(), 3)

	assert.Empty(t, summary.ConversationID)
	assert.Zero(t, summary.CandidatesFound)
	main.AssertNotCalled(t, "ScrollUp", mock.Anything)
	browser.AssertNotCalled(t, "NewPage", mock.Anything)
}

func TestProcessConversation_EmptyConversationReloadsOnce(t *testing.T) {
	main := new(MockPage)
	expectOpenedConversation(main, []Element{})
	main.On("Reload", mock.Anything).Return(nil)

	browser := new(MockBrowser)
	browser.On("MainPage").Return(main)

	rec := &fakeRecorder{}
	summary := newTestOrchestrator(browser, rec).ProcessConversation(context.Background(), 0)

	assert.Zero(t, summary.CandidatesFound)
	main.AssertNumberOfCalls(t, "Reload", 1)
	main.AssertNotCalled(t, "Type", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveURL(t *testing.T) {
	orc := newTestOrchestrator(new(MockBrowser), &fakeRecorder{})

	directLink := captured{
		Candidate: domain.Candidate{
			Kind:      domain.KindDirectLink,
			Href:      "/abc/status/100",
			Signature: DirectLinkSignature("/abc/status/100"),
		},
	}
	url, ok := orc.resolveURL(context.Background(), directLink)
	assert.True(t, ok)
	assert.Equal(t, "https://x.com/abc/status/100", url)

	// A bare anchor whose markup still references a status resolves via
	// the markup scrape.
	scraped := captured{
		Candidate: domain.Candidate{Kind: domain.KindDirectLink, Href: "/i/redirect"},
		el:        &stubElement{html: `<a href="https://x.com/xyz/status/200">post</a>`},
	}
	url, ok = orc.resolveURL(context.Background(), scraped)
	assert.True(t, ok)
	assert.Equal(t, "https://x.com/xyz/status/200", url)

	// Box-signature candidates carry no status reference at all.
	boxed := captured{
		Candidate: domain.Candidate{
			Kind:      domain.KindEmbedded,
			Signature: domain.Signature{Key: "embed:box:120,340"},
		},
	}
	_, ok = orc.resolveURL(context.Background(), boxed)
	assert.False(t, ok)
}
