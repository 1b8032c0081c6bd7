package services

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wknums/va-chat/models"
)

// urlPattern matches the first URL-shaped substring in free text.
var urlPattern = regexp.MustCompile(`https?://[^\s\)]+`)

// CitationService converts the agent service's heterogeneous annotation
// shapes into canonical citations and resolves knowledge-base document
// identifiers to public URLs.
type CitationService struct {
	policy models.ReconcilePolicy
	urlMap *URLMapService
	log    *logrus.Logger
}

// NewCitationService creates a citation service backed by the given URL
// mapping table.
func NewCitationService(policy models.ReconcilePolicy, urlMap *URLMapService, log *logrus.Logger) *CitationService {
	return &CitationService{
		policy: policy,
		urlMap: urlMap,
		log:    log,
	}
}

// Normalize produces zero or one canonical citation from a raw
// annotation. Shapes are tried in order, first match wins; an annotation
// matching no shape is skipped. idx numbers the annotation within its
// message and feeds the synthesized placeholder titles.
func (c *CitationService) Normalize(ann models.Annotation, idx int, source models.CitationSource) *models.Citation {
	citation := c.extract(ann, idx, source)
	if citation == nil {
		c.log.Warnf("Could not extract citation from annotation %d (type=%q)", idx, ann.Type)
		return nil
	}

	c.PostProcess(citation)
	return citation
}

// extract performs the shape dispatch without any URL resolution.
func (c *CitationService) extract(ann models.Annotation, idx int, source models.CitationSource) *models.Citation {
	web := source == models.SourceWebSearch

	switch {
	case ann.URLCitation != nil:
		title := ann.URLCitation.Title
		if title == "" {
			title = placeholderTitle("Search Result", "Web Result", idx, web)
		}
		citationURL := ann.URLCitation.URL
		if citationURL == "" {
			citationURL = c.policy.NoURLSentinel
		}
		return &models.Citation{
			Title:   title,
			URL:     citationURL,
			Snippet: ann.URLCitation.Snippet,
			Source:  source,
		}

	case ann.FileCitation != nil:
		fileID := ann.FileCitation.FileID

		title := placeholderTitle("Document", "Source", idx, web)
		if fileID != "" && !strings.HasPrefix(fileID, c.policy.GenericDocPrefix) {
			title = fileID
		}

		// Prefer an explicit URL on the citation; a doc_ value there is
		// just the internal identifier again, so fall back to the file
		// ID and let resolution handle it.
		citationURL := ann.FileCitation.URL
		if citationURL == "" || strings.HasPrefix(citationURL, c.policy.GenericDocPrefix) {
			citationURL = fileID
		}
		if citationURL == "" {
			citationURL = c.policy.NoURLSentinel
		}

		return &models.Citation{
			Title:   title,
			URL:     citationURL,
			Snippet: ann.FileCitation.Quote,
			Source:  source,
		}

	case ann.URL != "":
		title := ann.Title
		if title == "" {
			title = placeholderTitle("Source", "Web Source", idx, web)
		}
		snippet := ann.Text
		if snippet == "" {
			snippet = ann.Snippet
		}
		return &models.Citation{
			Title:   title,
			URL:     ann.URL,
			Snippet: snippet,
			Source:  source,
		}

	case ann.Text != "":
		match := urlPattern.FindString(ann.Text)
		if match == "" {
			return nil
		}
		return &models.Citation{
			Title:   placeholderTitle("Reference", "Web Reference", idx, web),
			URL:     match,
			Snippet: ann.Text,
			Source:  source,
		}
	}

	return nil
}

// PostProcess resolves a knowledge-base citation's URL through the
// mapping table and, when resolution changed the URL, replaces a
// placeholder title with one derived from the resolved URL. Web-search
// citations keep their URL untouched. Safe to apply more than once.
func (c *CitationService) PostProcess(citation *models.Citation) {
	if citation.Source != models.SourceKnowledgeBase {
		return
	}
	if citation.URL == c.policy.NoURLSentinel || citation.URL == "" {
		return
	}

	mapped := c.urlMap.Resolve(citation.URL)
	if mapped == citation.URL {
		return
	}

	c.log.Debugf("Mapped URL from %s to %s", citation.URL, mapped)
	citation.URL = mapped

	if c.policy.IsPlaceholderTitle(citation.Title) {
		if title := c.titleFromURL(mapped); title != "" {
			citation.Title = title
		}
	}
}

// titleFromURL derives a human-readable title from a resolved URL:
// preferring a filename carried in a "file" query parameter, otherwise
// the path's base filename for .pdf/.docx URLs.
func (c *CitationService) titleFromURL(resolved string) string {
	parsed, err := url.Parse(resolved)
	if err != nil {
		return ""
	}

	filename := ""
	if fileParam := parsed.Query().Get("file"); fileParam != "" {
		filename = path.Base(fileParam)
	} else if strings.HasSuffix(parsed.Path, ".pdf") || strings.HasSuffix(parsed.Path, ".docx") {
		filename = path.Base(parsed.Path)
	}
	if filename == "" {
		return ""
	}

	title := strings.TrimSuffix(filename, path.Ext(filename))
	title = strings.ReplaceAll(title, "-", " ")
	title = strings.ReplaceAll(title, "_", " ")
	return cases.Title(language.English).String(title)
}

// placeholderTitle synthesizes a numbered title for citations that
// arrived without one, varied by the agent that produced them.
func placeholderTitle(primary, web string, idx int, isWeb bool) string {
	label := primary
	if isWeb {
		label = web
	}
	return fmt.Sprintf("%s %d", label, idx+1)
}
