package domain

// CandidateKind tells which shape a candidate was discovered as.
type CandidateKind string

const (
	KindDirectLink CandidateKind = "direct_link"
	KindEmbedded   CandidateKind = "embedded"
)

// Signature is the comparison-stable identity of a candidate.
// Key is namespaced by kind; an empty Key means the candidate is not
// dedupable and must be kept unconditionally.
type Signature struct {
	Account  string
	StatusID string
	Key      string
}

// HasStatus reports whether the signature carries a resolvable
// account/status pair, i.e. a post URL can be constructed from it.
func (s Signature) HasStatus() bool {
	return s.Account != "" && s.StatusID != ""
}

// Candidate is one discovered post reference inside a conversation.
// It only lives for the duration of a single conversation visit.
type Candidate struct {
	Kind      CandidateKind
	Href      string // set for direct links only
	Signature Signature
}

// Box is an on-screen bounding box in CSS pixels.
type Box struct {
	Top    float64
	Bottom float64
	Left   float64
	Right  float64
}

// ConversationSummary holds the per-conversation tallies of one visit.
// Summaries are never merged across runs.
type ConversationSummary struct {
	ConversationID   string
	CandidatesFound  int
	Amplified        int
	AlreadyAmplified int
	Failed           int
}

// Cookie is one row of the tab-separated credential file.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Secure   bool
	HTTPOnly bool
	SameSite string
}
