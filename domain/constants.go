package domain

// X.com DOM selectors.
// These are isolated here because the site changes its DOM frequently.
// Update these when the harvest or the amplify action breaks.

const (
	BaseURL     = "https://x.com"
	MessagesURL = BaseURL + "/messages"
)

// Conversation list selectors, tried in order.
var ConversationSelectors = []string{
	`[data-testid="conversation"]`,
	`div[data-testid="cellInnerDiv"]`,
	`div[role="none"][data-testid="conversation"], div[tabindex="0"][data-testid="conversation"]`,
	`div[role="tablist"] > div`,
}

const (
	// Chat pane
	ChatContainer     = `div[data-testid="DMDrawer"], div[data-testid="conversation"]`
	ChatScroller      = `div[data-testid="DmScrollerContainer"]`
	ConversationReady = `[data-testid="conversation"], div[role="tablist"]`

	// Candidate shapes inside received messages
	EmbeddedPost = `div[tabindex="0"][data-testid="messageEntry"] div[role="link"]`
	DirectAnchor = `div[tabindex="0"][data-testid="messageEntry"] a[href*="/status/"]`

	// Watermark sentinel messages
	MessageSpan = `div[data-testid="messageEntry"] span`

	// Amplify action
	UndoMarker    = `button[data-testid="unretweet"], div[data-testid="unretweet"]`
	AnyButton     = `button`
	AnyMenuItem   = `div[role="menuitem"]`
	ToastOrAlert  = `div[role="alert"], div[data-testid="toast"]`
	UndoConfirm   = `div[data-testid="unretweetConfirm"]`
	ProfileColumn = `div[data-testid="primaryColumn"]`

	// Composer
	ComposerSend = `button[data-testid="dmComposerSendButton"]`
)

// Primary action selectors, tried in order. The naming drifts between
// "retweet" and "repost" depending on the UI revision.
var AmplifySelectors = []string{
	`button[data-testid="retweet"]`,
	`button[aria-label*="repost"]`,
	`button[aria-label*="Repost"]`,
	`button[aria-label*="reposts"]`,
	`button[aria-label*="Reposts"]`,
	`button[aria-label*="retweet"]`,
	`button[aria-label*="Retweet"]`,
	`div[role="button"][data-testid="retweet"]`,
	`div[aria-label*="repost"][role="button"]`,
}

// Confirmation affordance selectors, tried in order.
var AmplifyConfirmSelectors = []string{
	`div[data-testid="retweetConfirm"]`,
	`div[role="menuitem"][data-testid="retweet"]`,
	`div[data-testid="repost"]`,
	`div[role="menuitem"]`,
}

// Message composer selectors, tried in order.
var ComposerSelectors = []string{
	`div[data-contents="true"][role="textbox"]`,
	`div[contenteditable="true"][role="textbox"]`,
	`div[data-testid="dmComposerTextInput"]`,
}

// Literal texts that mark an already-amplified post.
var UndoTexts = []string{"Undo repost", "Undo Retweet"}
