package services

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"amplify-bot/domain"
)

var (
	statusURLRe  = regexp.MustCompile(`https?://(?:www\.)?(?:twitter\.com|x\.com)/([A-Za-z0-9_]+)/status/(\d+)`)
	statusPathRe = regexp.MustCompile(`^/?([A-Za-z0-9_]+)/status/(\d+)`)
	statusHrefRe = regexp.MustCompile(`href="/?([A-Za-z0-9_]+)/status/(\d+)`)
)

// captured pairs a candidate with its live element handle for the duration
// of one conversation visit.
type captured struct {
	domain.Candidate
	el Element
}

// DirectLinkSignature derives the identity of a hyperlink candidate from
// its href. Hrefs that are not status-shaped get an empty signature key so
// dedup keeps them unconditionally; losing real content costs more than an
// occasional duplicate.
func DirectLinkSignature(href string) domain.Signature {
	account, statusID, ok := parseStatusRef(href)
	if !ok {
		return domain.Signature{}
	}
	return domain.Signature{
		Account:  account,
		StatusID: statusID,
		Key:      fmt.Sprintf("link:%s/%s", account, statusID),
	}
}

// EmbeddedSignature derives the identity of an embedded candidate.
// Content-based identity (status ref in the markup plus a normalized text
// prefix) wins over layout-based identity: layout shifts during scrolling
// must not defeat dedup, while content keys collapse repeated renders of
// the same post. The coarse bounding box is the last resort.
func EmbeddedSignature(ctx context.Context, el Element) (domain.Signature, error) {
	markup, err := el.OuterHTML(ctx)
	if err != nil {
		return domain.Signature{}, err
	}

	account, statusID, ok := parseStatusRef(markup)
	if ok {
		text, err := el.Text(ctx)
		if err != nil {
			text = ""
		}
		return domain.Signature{
			Account:  account,
			StatusID: statusID,
			Key:      fmt.Sprintf("embed:%s/%s:%s", account, statusID, normalizePrefix(text, 100)),
		}, nil
	}

	box, err := el.Box(ctx)
	if err != nil {
		return domain.Signature{}, err
	}
	return domain.Signature{
		Key: fmt.Sprintf("embed:box:%d,%d", roundTo(box.Left, 10), roundTo(box.Top, 10)),
	}, nil
}

// StatusURL builds the absolute post URL for a signature.
func StatusURL(baseURL string, sig domain.Signature) string {
	return fmt.Sprintf("%s/%s/status/%s", strings.TrimRight(baseURL, "/"), sig.Account, sig.StatusID)
}

// ResolveHref turns a relative href into an absolute URL.
func ResolveHref(baseURL, href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		return strings.TrimRight(baseURL, "/") + href
	}
	return strings.TrimRight(baseURL, "/") + "/" + href
}

func parseStatusRef(s string) (account, statusID string, ok bool) {
	if m := statusURLRe.FindStringSubmatch(s); m != nil {
		return m[1], m[2], true
	}
	if m := statusPathRe.FindStringSubmatch(s); m != nil {
		return m[1], m[2], true
	}
	if m := statusHrefRe.FindStringSubmatch(s); m != nil {
		return m[1], m[2], true
	}
	return "", "", false
}

func normalizePrefix(text string, n int) string {
	text = strings.ToLower(strings.Join(strings.Fields(text), " "))
	runes := []rune(text)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes)
}

func roundTo(v float64, unit int) int {
	return int(math.Round(v/float64(unit))) * unit
}
