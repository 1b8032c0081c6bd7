package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPlaceholderTitle(t *testing.T) {
	p := DefaultReconcilePolicy()

	tests := []struct {
		title string
		want  bool
	}{
		{"Document 3", true},
		{"Search Result 1", true},
		{"doc_0", true},
		{"doc_12", true},
		{"Veterans Benefits Handbook", false},
		{"Documentation Portal", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, p.IsPlaceholderTitle(tt.title))
		})
	}
}
