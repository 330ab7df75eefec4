package report

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/securebank-ledger/internal/domain/ledger"
	"github.com/securebank-ledger/internal/domain/shared"
	"github.com/securebank-ledger/internal/export"
	"github.com/securebank-ledger/internal/expression"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const customRoot = "custom"

var customTemplates = template.Must(
	template.New(customRoot).Option("missingkey=error").ParseFS(templateFS, "templates/*.tmpl"),
)

func isCustomTemplate(name string) bool {
	return name != customRoot && !strings.HasSuffix(name, ".tmpl")
}

// Sources are the only collaborators a generator may reach
type Sources struct {
	Ledger    ledger.Reader
	Exporter  *export.Pipeline
	Evaluator *expression.Parser
	Now       func() time.Time
}

// Engine resolves report names against a fixed registry
type Engine struct {
	definitions map[string]*Definition
	sources     Sources
	logger      *slog.Logger
}

// NewEngine builds an engine over defs. The registry cannot change afterwards.
func NewEngine(logger *slog.Logger, sources Sources, defs ...*Definition) (*Engine, error) {
	if sources.Now == nil {
		sources.Now = func() time.Time { return time.Now().UTC() }
	}
	if sources.Evaluator == nil {
		sources.Evaluator = expression.NewParser(expression.DefaultMaxLength)
	}
	e := &Engine{
		definitions: make(map[string]*Definition, len(defs)),
		sources:     sources,
		logger:      logger,
	}
	for _, def := range defs {
		if def.Name == "" || def.generate == nil {
			return nil, fmt.Errorf("report definition %q is incomplete", def.Name)
		}
		if _, dup := e.definitions[def.Name]; dup {
			return nil, fmt.Errorf("report definition %q registered twice", def.Name)
		}
		e.definitions[def.Name] = def
	}
	return e, nil
}

// List returns every registered definition, sorted by name
func (e *Engine) List() []*Definition {
	defs := make([]*Definition, 0, len(e.definitions))
	for _, d := range e.definitions {
		defs = append(defs, d)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Definition looks up a registry entry by name
func (e *Engine) Definition(name string) (*Definition, error) {
	def, ok := e.definitions[name]
	if !ok {
		return nil, shared.ErrNotFound{Resource: "report", ID: name}
	}
	return def, nil
}

// Validate checks that name is registered and params satisfy its schema
func (e *Engine) Validate(name string, params map[string]string) error {
	def, err := e.Definition(name)
	if err != nil {
		return err
	}
	_, err = def.Bind(params)
	return err
}

// Generate runs the named generator. Unknown names fail before any data source is touched.
func (e *Engine) Generate(ctx context.Context, name string, params map[string]string) (*Content, error) {
	def, err := e.Definition(name)
	if err != nil {
		return nil, err
	}
	values, err := def.Bind(params)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	content, err := def.generate(ctx, e.sources, values)
	if err != nil {
		e.logger.Warn("Report generation failed",
			"report", name,
			"error", err,
			"correlation_id", shared.CorrelationIDFromContext(ctx),
		)
		return nil, err
	}
	content.ReportName = name
	if content.GeneratedAt.IsZero() {
		content.GeneratedAt = e.sources.Now()
	}

	e.logger.Info("Report generated",
		"report", name,
		"content_type", content.ContentType,
		"bytes", len(content.Body),
		"duration", time.Since(started),
		"correlation_id", shared.CorrelationIDFromContext(ctx),
	)
	return content, nil
}

// CustomTemplates lists the names accepted by GenerateCustom
func (e *Engine) CustomTemplates() []string {
	var names []string
	for _, t := range customTemplates.Templates() {
		if isCustomTemplate(t.Name()) {
			names = append(names, t.Name())
		}
	}
	sort.Strings(names)
	return names
}

// GenerateCustom renders a named built-in template against data. Every value is escaped.
func (e *Engine) GenerateCustom(ctx context.Context, templateName string, data map[string]interface{}) (*Content, error) {
	tmpl := customTemplates.Lookup(templateName)
	if tmpl == nil || !isCustomTemplate(templateName) {
		return nil, shared.ErrNotFound{Resource: "template", ID: templateName}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, shared.ErrInvalidArgument{Field: "data", Reason: "does not fit template " + templateName}
	}

	e.logger.Info("Custom report rendered",
		"template", templateName,
		"bytes", buf.Len(),
		"correlation_id", shared.CorrelationIDFromContext(ctx),
	)
	return &Content{
		ReportName:  templateName,
		ContentType: "text/html; charset=utf-8",
		Body:        buf.Bytes(),
		GeneratedAt: e.sources.Now(),
	}, nil
}
