package exporter

import (
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"

	"p2pulse/internal/analytics"
	"p2pulse/internal/files"
	"p2pulse/pkg/contracts/domain"
)

// HTMLWriter renders a static dashboard per partition: overview cards
// plus the included metric tables.
type HTMLWriter struct {
	layout        files.Layout
	includeTables []string
	logger        *slog.Logger
	tmpl          *template.Template
}

// NewHTMLWriter creates an HTML dashboard writer.
func NewHTMLWriter(layout files.Layout, includeTables []string, logger *slog.Logger) *HTMLWriter {
	return &HTMLWriter{
		layout:        layout,
		includeTables: includeTables,
		logger:        logger,
		tmpl:          template.Must(template.New("dashboard").Parse(dashboardTemplate)),
	}
}

type dashboardData struct {
	Title          string
	Period         string
	Bucket         string
	Operations     int
	WhaleCount     int
	OutlierCount   int
	WhaleThreshold string
	Tables         []domain.Table
	Diagnostics    []analytics.Diagnostic
}

// WriteDashboard writes the dashboard for one partition.
func (w *HTMLWriter) WriteDashboard(res *analytics.Result, tables []domain.Table) error {
	data := dashboardData{
		Title:          fmt.Sprintf("P2P Analysis: %s / %s", res.Meta.Period, res.Meta.Bucket),
		Period:         res.Meta.Period,
		Bucket:         res.Meta.Bucket,
		Operations:     res.Meta.Rows,
		WhaleCount:     res.WhaleCount,
		OutlierCount:   res.OutlierCount,
		WhaleThreshold: formatFloatPtr(res.WhaleThreshold),
		Diagnostics:    res.Diagnostics,
	}
	for _, table := range tables {
		if w.included(table.Name) {
			data.Tables = append(data.Tables, table)
		}
	}

	path := w.layout.DashboardPath(res.Meta.Period, res.Meta.Bucket)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dashboard: %w", err)
	}
	defer file.Close()

	if err := w.tmpl.Execute(file, data); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}

	w.logger.Info("HTML dashboard written",
		slog.String("period", res.Meta.Period),
		slog.String("bucket", res.Meta.Bucket),
		slog.String("path", path))
	return nil
}

func (w *HTMLWriter) included(name string) bool {
	if len(w.includeTables) == 0 {
		return true
	}
	for _, t := range w.includeTables {
		if t == name {
			return true
		}
	}
	return false
}

const dashboardTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; color: #1c2733; }
h1 { font-size: 1.4rem; }
.cards { display: flex; gap: 1rem; flex-wrap: wrap; margin-bottom: 2rem; }
.card { border: 1px solid #d4dbe3; border-radius: 6px; padding: 1rem 1.5rem; }
.card .value { font-size: 1.6rem; font-weight: 600; }
.card .label { font-size: 0.8rem; color: #5a6b7c; text-transform: uppercase; }
table { border-collapse: collapse; margin-bottom: 2rem; }
caption { text-align: left; font-weight: 600; padding: 0.5rem 0; }
th, td { border: 1px solid #d4dbe3; padding: 0.3rem 0.7rem; font-size: 0.85rem; text-align: right; }
th { background: #f0f3f6; }
td:first-child, th:first-child { text-align: left; }
.diagnostics { color: #8a6d1a; font-size: 0.85rem; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="cards">
<div class="card"><div class="value">{{.Operations}}</div><div class="label">Operations</div></div>
<div class="card"><div class="value">{{.WhaleCount}}</div><div class="label">Whale trades</div></div>
<div class="card"><div class="value">{{.OutlierCount}}</div><div class="label">Price outliers</div></div>
{{if .WhaleThreshold}}<div class="card"><div class="value">{{.WhaleThreshold}}</div><div class="label">Whale threshold</div></div>{{end}}
</div>
{{range .Tables}}
<table>
<caption>{{.Title}}</caption>
<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
{{end}}
{{if .Diagnostics}}
<div class="diagnostics">
<p>Skipped metrics:</p>
<ul>{{range .Diagnostics}}<li>{{.Metric}}: {{.Reason}}</li>{{end}}</ul>
</div>
{{end}}
</body>
</html>
`
