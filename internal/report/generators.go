package report

import (
	"bytes"
	"context"
	"fmt"
	"math"

	"github.com/olekukonko/tablewriter"
	"github.com/securebank-ledger/internal/domain/ledger"
	"github.com/securebank-ledger/internal/domain/shared"
	"github.com/securebank-ledger/internal/export"
	"github.com/securebank-ledger/internal/expression"
	"github.com/shopspring/decimal"
)

const (
	AccountStatement   = "account-statement"
	AccountSummary     = "account-summary"
	InterestProjection = "interest-projection"

	// DefaultInterestFormula is simple interest over the whole period
	DefaultInterestFormula = "principal * rate / 100 * time"

	maxProjectionPeriods = 100
)

// DefaultDefinitions returns the built-in registry
func DefaultDefinitions() []*Definition {
	formats := make([]string, 0, len(export.SupportedFormats))
	for _, f := range export.SupportedFormats {
		formats = append(formats, string(f))
	}

	accountParams := []Param{
		{Name: "account", Type: ParamString, Required: true, Description: "Account identifier"},
		{Name: "start_date", Type: ParamDate, Description: "Inclusive lower bound"},
		{Name: "end_date", Type: ParamDate, Description: "Exclusive upper bound"},
	}

	return []*Definition{
		NewDefinition(AccountStatement, "1.0", "Every transaction of an account in the chosen export format",
			append(append([]Param{}, accountParams...),
				Param{Name: "format", Type: ParamEnum, Default: string(export.FormatCSV), Values: formats}),
			generateStatement),
		NewDefinition(AccountSummary, "1.0", "Inflow, outflow and net totals with an optional formula over them",
			append(append([]Param{}, accountParams...),
				Param{Name: "formula", Type: ParamString, Description: "Expression over inflow, outflow, net and count"}),
			generateSummary),
		NewDefinition(InterestProjection, "1.0", "Interest accrued per period for a principal",
			[]Param{
				{Name: "principal", Type: ParamNumber, Required: true},
				{Name: "rate", Type: ParamNumber, Required: true, Description: "Percent per period"},
				{Name: "time", Type: ParamNumber, Required: true, Description: "Number of periods"},
				{Name: "n", Type: ParamNumber, Default: "1", Description: "Compounding steps per period"},
				{Name: "formula", Type: ParamString, Default: DefaultInterestFormula},
			},
			generateProjection),
	}
}

func dateRange(v Values) (ledger.DateRange, error) {
	r := ledger.DateRange{Start: v.Date("start_date"), End: v.Date("end_date")}
	return r, r.Validate()
}

func generateStatement(ctx context.Context, src Sources, v Values) (*Content, error) {
	r, err := dateRange(v)
	if err != nil {
		return nil, err
	}
	doc, err := src.Exporter.Export(ctx, v.String("account"), export.Format(v.String("format")), r)
	if err != nil {
		return nil, err
	}
	return &Content{ContentType: doc.ContentType, Body: doc.Body}, nil
}

type totals struct {
	inflow  decimal.Decimal
	outflow decimal.Decimal
	count   int
}

func (t totals) net() decimal.Decimal { return t.inflow.Sub(t.outflow) }

func (t totals) bindings() expression.Bindings {
	return expression.Bindings{
		"inflow":  t.inflow.InexactFloat64(),
		"outflow": t.outflow.InexactFloat64(),
		"net":     t.net().InexactFloat64(),
		"count":   float64(t.count),
	}
}

func summarize(accountID string, txs []*ledger.Transaction) totals {
	var t totals
	for _, tx := range txs {
		if tx.Status != shared.TransactionStatusCompleted || !tx.Touches(accountID) {
			continue
		}
		if tx.ToAccount == accountID {
			t.inflow = t.inflow.Add(tx.Amount)
		}
		if tx.FromAccount == accountID {
			t.outflow = t.outflow.Add(tx.Amount)
		}
		t.count++
	}
	return t
}

func generateSummary(ctx context.Context, src Sources, v Values) (*Content, error) {
	r, err := dateRange(v)
	if err != nil {
		return nil, err
	}

	var formula *expression.Expression
	if v.Has("formula") {
		if formula, err = src.Evaluator.Parse(v.String("formula")); err != nil {
			return nil, err
		}
	}

	account := v.String("account")
	txs, err := src.Ledger.ListByAccount(ctx, account, ledger.SortByDate, ledger.SortAscending)
	if err != nil {
		return nil, err
	}
	t := summarize(account, export.FilterByRange(txs, r))

	rows := [][]string{
		{"Inflow", t.inflow.StringFixed(ledger.AmountScale)},
		{"Outflow", t.outflow.StringFixed(ledger.AmountScale)},
		{"Net", t.net().StringFixed(ledger.AmountScale)},
		{"Count", fmt.Sprintf("%d", t.count)},
	}
	if formula != nil {
		result, err := formula.Evaluate(t.bindings())
		if err != nil {
			return nil, err
		}
		rows = append(rows, []string{"Formula", formatNumber(result)})
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Account summary: %s\n", account)
	if formula != nil {
		fmt.Fprintf(&buf, "Formula: %s\n", formula.Source())
	}
	buf.WriteString("\n")

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	table.AppendBulk(rows)
	table.Render()

	return &Content{ContentType: "text/plain; charset=utf-8", Body: buf.Bytes()}, nil
}

func generateProjection(_ context.Context, src Sources, v Values) (*Content, error) {
	principal, rate, periods, n := v.Number("principal"), v.Number("rate"), v.Number("time"), v.Number("n")
	if principal < 0 {
		return nil, shared.ErrInvalidArgument{Field: "principal", Reason: "must not be negative"}
	}
	if periods <= 0 || periods > maxProjectionPeriods {
		return nil, shared.ErrInvalidArgument{Field: "time", Reason: fmt.Sprintf("must be in (0, %d]", maxProjectionPeriods)}
	}
	if n <= 0 {
		return nil, shared.ErrInvalidArgument{Field: "n", Reason: "must be greater than zero"}
	}

	formula, err := src.Evaluator.Parse(v.String("formula"))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Interest projection\nFormula: %s\n\n", formula.Source())

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Period", "Interest", "Balance"})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})

	for _, p := range projectionPeriods(periods) {
		interest, err := formula.Evaluate(expression.Bindings{
			"principal": principal,
			"rate":      rate,
			"time":      p,
			"n":         n,
		})
		if err != nil {
			return nil, err
		}
		table.Append([]string{formatNumber(p), formatNumber(interest), formatNumber(principal + interest)})
	}
	table.Render()

	return &Content{ContentType: "text/plain; charset=utf-8", Body: buf.Bytes()}, nil
}

// projectionPeriods yields 1, 2, ... up to the whole periods, then the fractional end if any
func projectionPeriods(total float64) []float64 {
	whole := int(math.Floor(total))
	out := make([]float64, 0, whole+1)
	for i := 1; i <= whole; i++ {
		out = append(out, float64(i))
	}
	if total > float64(whole) {
		out = append(out, total)
	}
	return out
}

func formatNumber(f float64) string {
	return decimal.NewFromFloat(f).StringFixed(ledger.AmountScale)
}
