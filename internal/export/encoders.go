package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/securebank-ledger/internal/domain/ledger"
)

// csvHeader is the sorted list of exported field names
var csvHeader = []string{
	"amount",
	"created_at",
	"description",
	"from_account",
	"id",
	"note",
	"note_updated_at",
	"status",
	"to_account",
}

type encoder interface {
	contentType() string
	encode(w io.Writer, meta Meta, txs []*ledger.Transaction) error
}

// Meta describes the export for formats that render a heading
type Meta struct {
	AccountID   string
	GeneratedAt time.Time
	Range       ledger.DateRange
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func noteText(tx *ledger.Transaction) string {
	if tx.Note == nil {
		return ""
	}
	return *tx.Note
}

func amountText(tx *ledger.Transaction) string {
	return tx.Amount.StringFixed(ledger.AmountScale)
}

type csvEncoder struct{}

func (csvEncoder) contentType() string { return "text/csv; charset=utf-8" }

func (csvEncoder) encode(w io.Writer, _ Meta, txs []*ledger.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, tx := range txs {
		row := []string{
			amountText(tx),
			formatTime(tx.CreatedAt),
			tx.Description,
			tx.FromAccount,
			tx.ID.String(),
			noteText(tx),
			formatOptionalTime(tx.NoteUpdatedAt),
			string(tx.Status),
			tx.ToAccount,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// jsonRecord fixes the field order of the JSON export
type jsonRecord struct {
	ID            string      `json:"id"`
	FromAccount   string      `json:"from_account"`
	ToAccount     string      `json:"to_account"`
	Amount        json.Number `json:"amount"`
	Description   string      `json:"description"`
	Status        string      `json:"status"`
	CreatedAt     string      `json:"created_at"`
	Note          *string     `json:"note"`
	NoteUpdatedAt *string     `json:"note_updated_at"`
}

type jsonEncoder struct{}

func (jsonEncoder) contentType() string { return "application/json" }

func (jsonEncoder) encode(w io.Writer, _ Meta, txs []*ledger.Transaction) error {
	records := make([]jsonRecord, 0, len(txs))
	for _, tx := range txs {
		rec := jsonRecord{
			ID:          tx.ID.String(),
			FromAccount: tx.FromAccount,
			ToAccount:   tx.ToAccount,
			Amount:      json.Number(amountText(tx)),
			Description: tx.Description,
			Status:      string(tx.Status),
			CreatedAt:   formatTime(tx.CreatedAt),
			Note:        tx.Note,
		}
		if tx.NoteUpdatedAt != nil {
			ts := formatTime(*tx.NoteUpdatedAt)
			rec.NoteUpdatedAt = &ts
		}
		records = append(records, rec)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// htmlRow carries either escaped strings or, for trusted exports, pre-approved markup
type htmlRow struct {
	ID          string
	CreatedAt   string
	FromAccount string
	ToAccount   string
	Amount      string
	Status      string
	Description interface{}
	Note        interface{}
}

type htmlEncoder struct {
	tmpl            *template.Template
	trustedRichText bool
}

func (htmlEncoder) contentType() string { return "text/html; charset=utf-8" }

func (e htmlEncoder) encode(w io.Writer, meta Meta, txs []*ledger.Transaction) error {
	rows := make([]htmlRow, 0, len(txs))
	for _, tx := range txs {
		row := htmlRow{
			ID:          tx.ID.String(),
			CreatedAt:   formatTime(tx.CreatedAt),
			FromAccount: tx.FromAccount,
			ToAccount:   tx.ToAccount,
			Amount:      amountText(tx),
			Status:      string(tx.Status),
			Description: tx.Description,
			Note:        noteText(tx),
		}
		if e.trustedRichText {
			row.Description = template.HTML(tx.Description)
			row.Note = template.HTML(noteText(tx))
		}
		rows = append(rows, row)
	}
	return e.tmpl.ExecuteTemplate(w, "statement", struct {
		Meta        Meta
		GeneratedAt string
		Rows        []htmlRow
	}{Meta: meta, GeneratedAt: formatTime(meta.GeneratedAt), Rows: rows})
}

type txtEncoder struct{}

func (txtEncoder) contentType() string { return "text/plain; charset=utf-8" }

func (txtEncoder) encode(w io.Writer, meta Meta, txs []*ledger.Transaction) error {
	if _, err := fmt.Fprintf(w, "Account statement: %s\nGenerated: %s\n\n", meta.AccountID, formatTime(meta.GeneratedAt)); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Date", "ID", "From", "To", "Amount", "Status", "Description", "Note"})
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
	})
	for _, tx := range txs {
		table.Append([]string{
			formatTime(tx.CreatedAt),
			tx.ID.String(),
			tx.FromAccount,
			tx.ToAccount,
			amountText(tx),
			string(tx.Status),
			tx.Description,
			noteText(tx),
		})
	}
	table.SetFooter([]string{"", "", "", "Count", fmt.Sprintf("%d", len(txs)), "", "", ""})
	table.Render()
	return nil
}
