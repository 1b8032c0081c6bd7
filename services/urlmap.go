package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// URLMapService maps opaque document identifiers to public URLs using a
// table loaded once at startup. The table is read-only after
// initialization and safe to share across requests.
type URLMapService struct {
	mapping map[string]string
	log     *logrus.Logger
}

// NewURLMapService creates a URL map service. The mapping starts empty;
// call LoadCSV to populate it.
func NewURLMapService(log *logrus.Logger) *URLMapService {
	return &URLMapService{
		mapping: make(map[string]string),
		log:     log,
	}
}

// LoadCSV loads (filename, public URL) pairs from a two-column CSV file.
// Each filename is also indexed without its extension for flexibility.
// A missing or unreadable file degrades to an empty table.
func (u *URLMapService) LoadCSV(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("could not open URL mapping file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("could not read URL mapping file: %w", err)
		}
		if len(row) < 2 {
			continue
		}

		filename := strings.TrimSpace(row[0])
		url := strings.TrimSpace(row[1])
		if filename == "" || url == "" {
			continue
		}

		u.mapping[filename] = url
		baseName := strings.TrimSuffix(filename, filepath.Ext(filename))
		u.mapping[baseName] = url
	}

	u.log.Infof("Loaded %d URL mappings from %s", len(u.mapping), path)
	return nil
}

// Resolve maps a document identifier to its public URL. Identifiers that
// already look like URLs pass through unchanged; unknown identifiers are
// returned as-is.
func (u *URLMapService) Resolve(docID string) string {
	if strings.HasPrefix(docID, "http") {
		return docID
	}

	if url, ok := u.mapping[docID]; ok {
		return url
	}
	if url, ok := u.mapping[docID+".pdf"]; ok {
		return url
	}
	if url, ok := u.mapping[docID+".docx"]; ok {
		return url
	}

	u.log.Warnf("No URL mapping found for document ID: %s", docID)
	return docID
}

// Size returns the number of indexed mapping keys.
func (u *URLMapService) Size() int {
	return len(u.mapping)
}

// GetStatus returns the status of the URL map service
func (u *URLMapService) GetStatus() map[string]interface{} {
	return map[string]interface{}{
		"mappings": len(u.mapping),
	}
}
