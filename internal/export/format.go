// Package export serializes sets of ledger transactions into downloadable documents.
package export

import (
	"strings"

	"github.com/securebank-ledger/internal/domain/shared"
)

// Format is one of the supported export encodings
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
	FormatTXT  Format = "txt"
)

// SupportedFormats lists every format in a stable order
var SupportedFormats = []Format{FormatCSV, FormatJSON, FormatHTML, FormatTXT}

// ParseFormat validates a caller-supplied format name
func ParseFormat(raw string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(raw)))
	for _, s := range SupportedFormats {
		if f == s {
			return f, nil
		}
	}
	return "", shared.ErrUnsupportedFormat{Format: raw}
}

// Document is a fully rendered export
type Document struct {
	Format      Format
	ContentType string
	Filename    string
	Body        []byte
}
