package models

// ReconcilePolicy gathers the string heuristics and limits that drive
// response reconciliation. Keeping them in one injected value keeps the
// orchestrator, normalizer and formatter independently testable.
type ReconcilePolicy struct {
	// NoResultsIndicators are matched case-insensitively against the
	// primary response to decide whether the fallback agent should run.
	NoResultsIndicators []string

	// NoResultsSentinel marks a response that explicitly found nothing;
	// sections containing it are excluded from search-mode merges.
	NoResultsSentinel string

	// PlaceholderTitlePrefixes mark synthesized titles that should be
	// replaced when a resolved URL offers something human readable.
	PlaceholderTitlePrefixes []string

	// GenericDocPrefix is the internal placeholder identifier prefix
	// used by the knowledge store (e.g. "doc_0").
	GenericDocPrefix string

	// NoURLSentinel is the placeholder URL for citations without one.
	NoURLSentinel string

	// ShortResponseThreshold triggers the fallback agent when a
	// citation-free conversational reply is shorter than this.
	ShortResponseThreshold int

	// MaxCitations caps how many citations become search results.
	MaxCitations int

	// SnippetFallbackLength bounds the snippet cut from the response
	// text when a citation carries none of its own.
	SnippetFallbackLength int

	// MaxTitleLength and MaxSnippetLength bound search result fields.
	MaxTitleLength   int
	MaxSnippetLength int

	// FallbackResultTitle names the single placeholder result emitted
	// when nothing else could be produced.
	FallbackResultTitle string
}

// DefaultReconcilePolicy returns the policy used in production.
func DefaultReconcilePolicy() ReconcilePolicy {
	return ReconcilePolicy{
		NoResultsIndicators: []string{
			"NO_RESULTS_FOUND",
			"no results",
			"couldn't find",
			"no information",
			"not found",
			"no relevant",
		},
		NoResultsSentinel: "NO_RESULTS_FOUND",
		PlaceholderTitlePrefixes: []string{
			"Document ",
			"Search Result ",
		},
		GenericDocPrefix:       "doc_",
		NoURLSentinel:          "#",
		ShortResponseThreshold: 200,
		MaxCitations:           20,
		SnippetFallbackLength:  250,
		MaxTitleLength:         200,
		MaxSnippetLength:       500,
		FallbackResultTitle:    "Search Results from VA Assistant",
	}
}

// IsPlaceholderTitle reports whether a title is one of the synthesized
// placeholders (or a bare internal document identifier) that deserves
// replacement by a title derived from the resolved URL.
func (p ReconcilePolicy) IsPlaceholderTitle(title string) bool {
	for _, prefix := range p.PlaceholderTitlePrefixes {
		if len(title) >= len(prefix) && title[:len(prefix)] == prefix {
			return true
		}
	}
	return p.GenericDocPrefix != "" && len(title) >= len(p.GenericDocPrefix) &&
		title[:len(p.GenericDocPrefix)] == p.GenericDocPrefix
}
