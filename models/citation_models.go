package models

// CitationSource identifies which agent produced a citation.
type CitationSource string

const (
	SourceKnowledgeBase CitationSource = "AI Search"
	SourceWebSearch     CitationSource = "Bing Search"
)

// Citation is the canonical source reference extracted from an agent's
// answer, regardless of which annotation shape it arrived in.
type Citation struct {
	Title   string         `json:"title"`
	URL     string         `json:"url"`
	Snippet string         `json:"snippet"`
	Source  CitationSource `json:"source"`
}

// SearchResult is the presentation-level entity returned for search-mode
// requests.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// AnnotationType tags the recognized citation shapes emitted by the
// agent service.
type AnnotationType string

const (
	AnnotationURLCitation  AnnotationType = "url_citation"
	AnnotationFileCitation AnnotationType = "file_citation"
	AnnotationURL          AnnotationType = "url"
	AnnotationText         AnnotationType = "text"
)

// URLCitation is a web-style citation with an embedded url/title/snippet
// container.
type URLCitation struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// FileCitation is a knowledge-base citation referencing an indexed
// document by its file identifier plus a quoted excerpt.
type FileCitation struct {
	FileID string `json:"file_id"`
	Quote  string `json:"quote,omitempty"`
	URL    string `json:"url,omitempty"`
}

// Annotation is the tagged union of citation shapes attached to an
// assistant message. Exactly one variant field is expected to be set;
// an annotation with none set is unrecognized and gets skipped.
type Annotation struct {
	Type         AnnotationType `json:"type,omitempty"`
	URLCitation  *URLCitation   `json:"url_citation,omitempty"`
	FileCitation *FileCitation  `json:"file_citation,omitempty"`
	URL          string         `json:"url,omitempty"`
	Title        string         `json:"title,omitempty"`
	Snippet      string         `json:"snippet,omitempty"`
	Text         string         `json:"text,omitempty"`
}
