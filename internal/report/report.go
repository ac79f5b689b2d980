// Package report renders account statements as markdown.
package report

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/isdelr/papertrade-be/internal/models"
	"github.com/isdelr/papertrade-be/internal/money"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates/*.md
var templates embed.FS

var funcs = template.FuncMap{
	"usd":      money.USD,
	"md":       escape,
	"cell":     cell,
	"datetime": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04:05 UTC") },
}

var statementTmpl = template.Must(template.New("statement.md").Funcs(funcs).ParseFS(templates, "templates/*.md"))

// Statement is everything a statement shows.
type Statement struct {
	Portfolio models.Portfolio
	History   []models.HistoryEntry
	At        time.Time
}

// Source provides the account data a statement is built from.
type Source interface {
	ComputePortfolio(ctx context.Context, userID string) (models.Portfolio, error)
	History(ctx context.Context, userID string) ([]models.HistoryEntry, error)
}

// Build gathers the statement of an account as of at.
func Build(ctx context.Context, src Source, userID string, at time.Time) (Statement, error) {
	portfolio, err := src.ComputePortfolio(ctx, userID)
	if err != nil {
		return Statement{}, err
	}
	history, err := src.History(ctx, userID)
	if err != nil {
		return Statement{}, err
	}
	return Statement{Portfolio: portfolio, History: history, At: at}, nil
}

// Markdown renders the statement as GitHub-flavoured markdown.
func (s Statement) Markdown() (string, error) {
	return s.execute("statement.md")
}

// HoldingsMarkdown renders only the holdings section.
func (s Statement) HoldingsMarkdown() (string, error) {
	return s.execute("holdings")
}

// HistoryMarkdown renders only the trade history section.
func (s Statement) HistoryMarkdown() (string, error) {
	return s.execute("history")
}

func (s Statement) execute(name string) (string, error) {
	var b strings.Builder
	if err := statementTmpl.ExecuteTemplate(&b, name, s); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return b.String(), nil
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// ToHTML converts markdown to an HTML fragment. Raw HTML in the input is
// dropped, not passed through.
func ToHTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return buf.String(), nil
}

var escaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"<", `\<`, ">", `\>`, "#", `\#`, "|", `\|`, "!", `\!`,
)

// escape neutralises markdown syntax in user-provided text.
func escape(s string) string {
	return escaper.Replace(s)
}

// cell makes s safe inside a table cell.
func cell(s string) string {
	return strings.ReplaceAll(escape(s), "\n", " ")
}
