package services

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestURLMapServiceLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.csv")
	csv := "benefits-guide.pdf,https://example.gov/docs?file=benefits-guide.pdf\n" +
		"enrollment.docx,https://example.gov/enrollment.docx\n" +
		"malformed-row\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	u := NewURLMapService(testLogger())
	require.NoError(t, u.LoadCSV(path))

	// Each filename indexed with and without extension.
	assert.Equal(t, 4, u.Size())
	assert.Equal(t, "https://example.gov/docs?file=benefits-guide.pdf", u.Resolve("benefits-guide.pdf"))
	assert.Equal(t, "https://example.gov/docs?file=benefits-guide.pdf", u.Resolve("benefits-guide"))
}

func TestURLMapServiceLoadCSVMissingFile(t *testing.T) {
	u := NewURLMapService(testLogger())
	err := u.LoadCSV(filepath.Join(t.TempDir(), "nope.csv"))

	require.Error(t, err)
	assert.Equal(t, 0, u.Size())
	// Degrades gracefully: identifiers pass through unresolved.
	assert.Equal(t, "doc_1", u.Resolve("doc_1"))
}

func TestURLMapServiceResolve(t *testing.T) {
	u := NewURLMapService(testLogger())
	u.mapping = map[string]string{
		"handbook.pdf":  "https://example.gov/handbook.pdf",
		"schedule.docx": "https://example.gov/schedule.docx",
		"exact-key":     "https://example.gov/exact",
	}

	tests := []struct {
		name  string
		docID string
		want  string
	}{
		{"already a URL passes through", "https://example.gov/page", "https://example.gov/page"},
		{"direct lookup", "exact-key", "https://example.gov/exact"},
		{"pdf suffix fallback", "handbook", "https://example.gov/handbook.pdf"},
		{"docx suffix fallback", "schedule", "https://example.gov/schedule.docx"},
		{"absent identifier unchanged", "missing-doc", "missing-doc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, u.Resolve(tt.docID))
		})
	}
}
