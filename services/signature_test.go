package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"amplify-bot/domain"
)

func TestDirectLinkSignature_RelativePath(t *testing.T) {
	sig := DirectLinkSignature("/abc/status/100")
	assert.Equal(t, "abc", sig.Account)
	assert.Equal(t, "100", sig.StatusID)
	assert.Equal(t, "link:abc/100", sig.Key)
}

func TestDirectLinkSignature_AbsoluteURLs(t *testing.T) {
	a := DirectLinkSignature("https://x.com/abc/status/100")
	b := DirectLinkSignature("https://twitter.com/abc/status/100")
	c := DirectLinkSignature("/abc/status/100")

	assert.Equal(t, a.Key, b.Key)
	assert.Equal(t, a.Key, c.Key)
}

func TestDirectLinkSignature_NonStatusHref(t *testing.T) {
	sig := DirectLinkSignature("/abc/photo/1")
	assert.Empty(t, sig.Key)
	assert.False(t, sig.HasStatus())
}

func TestEmbeddedSignature_ContentBased(t *testing.T) {
	el := &stubElement{
		html: `<div><a href="https://x.com/abc/status/100">quoted</a></div>`,
		text: "  Hello   WORLD from the chat  ",
	}

	sig, err := EmbeddedSignature(context.Background(), el)
	assert.NoError(t, err)
	assert.Equal(t, "abc", sig.Account)
	assert.Equal(t, "100", sig.StatusID)
	assert.Equal(t, "embed:abc/100:hello world from the chat", sig.Key)
}

func TestEmbeddedSignature_TextPrefixIsBounded(t *testing.T) {
	el := &stubElement{
		html: `<a href="/abc/status/100"></a>`,
		text: strings.Repeat("x", 500),
	}

	sig, err := EmbeddedSignature(context.Background(), el)
	assert.NoError(t, err)
	assert.Equal(t, "embed:abc/100:"+strings.Repeat("x", 100), sig.Key)
}

func TestEmbeddedSignature_BoxFallback(t *testing.T) {
	el := &stubElement{
		html: `<div>no link here</div>`,
		box:  domain.Box{Left: 123, Top: 341},
	}

	sig, err := EmbeddedSignature(context.Background(), el)
	assert.NoError(t, err)
	assert.False(t, sig.HasStatus())
	assert.Equal(t, "embed:box:120,340", sig.Key)
}

func TestEmbeddedSignature_LayoutShiftCollapsesByContent(t *testing.T) {
	// The same post rendered at two different positions must produce the
	// same signature.
	a := &stubElement{html: `<a href="/abc/status/100"></a>`, text: "same post", box: domain.Box{Top: 100}}
	b := &stubElement{html: `<a href="/abc/status/100"></a>`, text: "same post", box: domain.Box{Top: 900}}

	sigA, err := EmbeddedSignature(context.Background(), a)
	assert.NoError(t, err)
	sigB, err := EmbeddedSignature(context.Background(), b)
	assert.NoError(t, err)
	assert.Equal(t, sigA.Key, sigB.Key)
}

func TestResolveHref(t *testing.T) {
	assert.Equal(t, "https://x.com/abc/status/1", ResolveHref("https://x.com", "/abc/status/1"))
	assert.Equal(t, "https://x.com/abc/status/1", ResolveHref("https://x.com/", "abc/status/1"))
	assert.Equal(t, "https://other.com/p/2", ResolveHref("https://x.com", "https://other.com/p/2"))
}

func TestStatusURL(t *testing.T) {
	sig := domain.Signature{Account: "abc", StatusID: "100"}
	assert.Equal(t, "https://x.com/abc/status/100", StatusURL("https://x.com/", sig))
}
