// Package classify is the single seam between the migration core and
// document classification. The core only ever talks to the Classifier
// interface; model or rule changes never touch the dedup/migration engine.
package classify

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/curatord/curator/internal/types"
)

// Classification is the result of classifying one file
type Classification struct {
	DocumentType string  `json:"document_type"`
	Domain       string  `json:"domain"`
	Confidence   float64 `json:"confidence"` // in [0,1]
	Method       string  `json:"method"`
}

// Classifier assigns a document type to a file record
type Classifier interface {
	Classify(ctx context.Context, rec *types.FileRecord) (Classification, error)
}

// Static is a rule-based classifier keyed on filename extension. It is the
// default collaborator for local use and tests; production deployments
// substitute their own implementation.
type Static struct {
	// ByExtension maps a lowercased extension (with dot) to a document type
	ByExtension map[string]string
	// Domain is applied to every classification
	Domain string
	// Confidence reported for known extensions
	Confidence float64
}

// Compile-time check that Static implements Classifier
var _ Classifier = (*Static)(nil)

// NewStatic creates a classifier with a common extension table
func NewStatic(domain string) *Static {
	return &Static{
		ByExtension: map[string]string{
			".pdf":  "document",
			".doc":  "document",
			".docx": "document",
			".txt":  "document",
			".md":   "document",
			".xls":  "spreadsheet",
			".xlsx": "spreadsheet",
			".csv":  "spreadsheet",
			".jpg":  "image",
			".jpeg": "image",
			".png":  "image",
			".gif":  "image",
			".mp4":  "video",
			".mov":  "video",
			".mp3":  "audio",
			".zip":  "archive",
			".tar":  "archive",
			".gz":   "archive",
		},
		Domain:     domain,
		Confidence: 0.9,
	}
}

// Classify maps the file's extension through the table. Unknown extensions
// get type "other" with low confidence, which the validation gate turns
// into requires_review.
func (s *Static) Classify(_ context.Context, rec *types.FileRecord) (Classification, error) {
	ext := strings.ToLower(filepath.Ext(rec.Path))
	if docType, ok := s.ByExtension[ext]; ok {
		return Classification{
			DocumentType: docType,
			Domain:       s.Domain,
			Confidence:   s.Confidence,
			Method:       "extension",
		}, nil
	}
	return Classification{
		DocumentType: "other",
		Domain:       s.Domain,
		Confidence:   0.3,
		Method:       "extension",
	}, nil
}
