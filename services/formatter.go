package services

import (
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/wknums/va-chat/models"
)

var (
	paragraphPattern    = regexp.MustCompile(`\n\n+`)
	markdownLinkPattern = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	ordinalPattern      = regexp.MustCompile(`^\*{0,2}\d+\.\s*\*{0,2}\s*`)
	trailingDashPattern = regexp.MustCompile(`\s*-\s*$`)
)

// FormatterService assembles the ordered search result list from an
// agent response and its citations. It always produces at least one
// result.
type FormatterService struct {
	policy    models.ReconcilePolicy
	citations *CitationService
	log       *logrus.Logger
}

// NewFormatterService creates a formatter backed by the citation service
// for URL resolution of knowledge-base citations.
func NewFormatterService(policy models.ReconcilePolicy, citations *CitationService, log *logrus.Logger) *FormatterService {
	return &FormatterService{
		policy:    policy,
		citations: citations,
		log:       log,
	}
}

// FormatAsSearchResults converts an agent response and its citations
// into the search result format. Citations win when present; otherwise
// search mode falls back to parsing the response text, and as a last
// resort a single placeholder result carries the raw response.
func (f *FormatterService) FormatAsSearchResults(responseText string, citations []models.Citation, isSearchMode bool) []models.SearchResult {
	results := []models.SearchResult{}

	if len(citations) > f.policy.MaxCitations {
		citations = citations[:f.policy.MaxCitations]
	}

	for i := range citations {
		citation := citations[i]
		f.citations.PostProcess(&citation)

		if citation.URL == "" || citation.URL == f.policy.NoURLSentinel {
			f.log.Warnf("Skipped citation %d (%s): no valid URL", i, citation.Source)
			continue
		}

		snippet := citation.Snippet
		if snippet == "" {
			snippet = truncate(responseText, f.policy.SnippetFallbackLength)
		}

		results = append(results, models.SearchResult{
			Title:   truncate(citation.Title, f.policy.MaxTitleLength),
			URL:     citation.URL,
			Snippet: truncate(snippet, f.policy.MaxSnippetLength),
		})
	}

	if len(results) == 0 && responseText != "" && isSearchMode {
		f.log.Warn("No citations found in search mode, attempting to parse response text")
		results = f.parseResponseText(responseText)
	}

	if len(results) == 0 {
		f.log.Warn("No structured results found, creating fallback result")
		results = append(results, models.SearchResult{
			Title:   f.policy.FallbackResultTitle,
			URL:     f.policy.NoURLSentinel,
			Snippet: responseText,
		})
	}

	return results
}

// parseResponseText extracts structured results from unstructured
// response text: paragraphs split on blank lines, markdown links
// preferred, bare URLs with a first-line title as fallback.
func (f *FormatterService) parseResponseText(responseText string) []models.SearchResult {
	results := []models.SearchResult{}

	for _, para := range paragraphPattern.Split(strings.TrimSpace(responseText), -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		var title, resultURL string
		if match := markdownLinkPattern.FindStringSubmatch(para); match != nil {
			title = ordinalPattern.ReplaceAllString(strings.TrimSpace(match[1]), "")
			resultURL = strings.TrimSpace(match[2])
		} else {
			resultURL = urlPattern.FindString(para)
			if resultURL == "" {
				resultURL = f.policy.NoURLSentinel
			}

			lines := strings.Split(para, "\n")
			title = ordinalPattern.ReplaceAllString(strings.TrimSpace(lines[0]), "")
			title = strings.TrimSpace(urlPattern.ReplaceAllString(title, ""))
			title = strings.TrimSpace(trailingDashPattern.ReplaceAllString(title, ""))
		}

		snippet := para
		if idx := strings.Index(para, "\n"); idx >= 0 {
			snippet = strings.TrimSpace(para[idx+1:])
		}

		if title == "" || resultURL == f.policy.NoURLSentinel {
			continue
		}

		results = append(results, models.SearchResult{
			Title:   truncate(title, f.policy.MaxTitleLength),
			URL:     resultURL,
			Snippet: truncate(snippet, f.policy.MaxSnippetLength),
		})
		f.log.Debugf("Parsed result from text: title=%s, url=%s", truncate(title, 50), truncate(resultURL, 50))
	}

	f.log.Infof("Parsed %d results from text", len(results))
	return results
}

// truncate bounds a string to max bytes without splitting below it.
func truncate(s string, max int) string {
	if max > 0 && len(s) > max {
		return s[:max]
	}
	return s
}
