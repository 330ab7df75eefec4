package export

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/securebank-ledger/internal/domain/ledger"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var statementTemplate = template.Must(template.ParseFS(templateFS, "templates/statement.html.tmpl"))

// Option configures a Pipeline
type Option func(*Pipeline)

// WithTrustedRichText disables escaping of descriptions and notes in HTML output.
// Only internal callers that have sanitized ledger content may use it; no request
// parameter maps to this option.
func WithTrustedRichText() Option {
	return func(p *Pipeline) { p.trustedRichText = true }
}

// WithClock overrides the generation timestamp source
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// Pipeline reads transactions from the ledger and renders them in a chosen format
type Pipeline struct {
	reader          ledger.Reader
	logger          *slog.Logger
	trustedRichText bool
	now             func() time.Time
}

func NewPipeline(logger *slog.Logger, reader ledger.Reader, opts ...Option) *Pipeline {
	p := &Pipeline{
		reader: reader,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Export renders every transaction of accountID whose creation time falls in dateRange.
// Nothing is returned unless the whole document rendered successfully.
func (p *Pipeline) Export(ctx context.Context, accountID string, format Format, dateRange ledger.DateRange) (*Document, error) {
	enc, err := p.encoderFor(format)
	if err != nil {
		return nil, err
	}
	if err := dateRange.Validate(); err != nil {
		return nil, err
	}

	txs, err := p.reader.ListByAccount(ctx, accountID, ledger.SortByDate, ledger.SortAscending)
	if err != nil {
		return nil, err
	}
	txs = FilterByRange(txs, dateRange)

	meta := Meta{AccountID: accountID, GeneratedAt: p.now(), Range: dateRange}
	body, err := p.render(enc, meta, txs)
	if err != nil {
		p.logger.Error("Failed to render export", "account_id", accountID, "format", string(format), "error", err)
		return nil, err
	}

	p.logger.Info("Export generated",
		"account_id", accountID,
		"format", string(format),
		"transactions", len(txs),
		"bytes", len(body),
	)

	return &Document{
		Format:      format,
		ContentType: enc.contentType(),
		Filename:    fmt.Sprintf("transactions_%s_%s.%s", accountID, meta.GeneratedAt.Format("20060102"), format),
		Body:        body,
	}, nil
}

// Render encodes an already selected transaction set. Report generators use it
// to embed ledger data without going back to storage.
func (p *Pipeline) Render(format Format, meta Meta, txs []*ledger.Transaction) ([]byte, string, error) {
	enc, err := p.encoderFor(format)
	if err != nil {
		return nil, "", err
	}
	if meta.GeneratedAt.IsZero() {
		meta.GeneratedAt = p.now()
	}
	body, err := p.render(enc, meta, txs)
	if err != nil {
		return nil, "", err
	}
	return body, enc.contentType(), nil
}

func (p *Pipeline) render(enc encoder, meta Meta, txs []*ledger.Transaction) ([]byte, error) {
	var buf bytes.Buffer
	if err := enc.encode(&buf, meta, txs); err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	return buf.Bytes(), nil
}

func (p *Pipeline) encoderFor(format Format) (encoder, error) {
	f, err := ParseFormat(string(format))
	if err != nil {
		return nil, err
	}
	switch f {
	case FormatCSV:
		return csvEncoder{}, nil
	case FormatJSON:
		return jsonEncoder{}, nil
	case FormatHTML:
		return htmlEncoder{tmpl: statementTemplate, trustedRichText: p.trustedRichText}, nil
	default:
		return txtEncoder{}, nil
	}
}

// FilterByRange keeps transactions created inside the half-open range, preserving order
func FilterByRange(txs []*ledger.Transaction, r ledger.DateRange) []*ledger.Transaction {
	out := make([]*ledger.Transaction, 0, len(txs))
	for _, tx := range txs {
		if r.Contains(tx.CreatedAt) {
			out = append(out, tx)
		}
	}
	return out
}
