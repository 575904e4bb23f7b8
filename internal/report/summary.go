package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
)

// Summarizer creates summary emails from run results
type Summarizer struct {
	maxRows  int
	template *template.Template
}

// NewSummarizer creates a summarizer that lists at most maxRows rows
func NewSummarizer(maxRows int) (*Summarizer, error) {
	tmpl, err := template.New("summary").Parse(summaryTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	return &Summarizer{
		maxRows:  maxRows,
		template: tmpl,
	}, nil
}

// Summary is a rendered run summary ready for sending
type Summary struct {
	Subject   string
	HTMLBody  string
	PlainBody string
	CreatedAt time.Time
}

// RunInfo describes the run being summarized
type RunInfo struct {
	RunID       string
	Mode        string
	SeedPostURL string
	OutputPath  string
	FinishedAt  time.Time
}

// SummaryData is the template data structure
type SummaryData struct {
	Title     string
	Date      string
	Run       RunInfo
	Header    []string
	Rows      [][]string
	TotalRows int
	Omitted   int
}

// Build renders t for the given run
func (s *Summarizer) Build(t Table, info RunInfo) (*Summary, error) {
	if info.FinishedAt.IsZero() {
		info.FinishedAt = time.Now()
	}

	rows := t.Records
	if s.maxRows > 0 && len(rows) > s.maxRows {
		rows = rows[:s.maxRows]
	}

	data := SummaryData{
		Title:     fmt.Sprintf("X engagement - %s", info.Mode),
		Date:      info.FinishedAt.Format("Monday, January 2 15:04"),
		Run:       info,
		Header:    t.Header,
		Rows:      rows,
		TotalRows: len(t.Records),
		Omitted:   len(t.Records) - len(rows),
	}

	var htmlBuf bytes.Buffer
	if err := s.template.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}

	return &Summary{
		Subject:   fmt.Sprintf("X engagement (%s) - %d rows, %s", info.Mode, data.TotalRows, info.FinishedAt.Format("Jan 2")),
		HTMLBody:  htmlBuf.String(),
		PlainBody: buildPlainText(data),
		CreatedAt: info.FinishedAt,
	}, nil
}

func buildPlainText(data SummaryData) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\n%s\n\n", data.Title, data.Date)
	if data.Run.SeedPostURL != "" {
		fmt.Fprintf(&buf, "Seed post: %s\n", data.Run.SeedPostURL)
	}
	fmt.Fprintf(&buf, "Rows: %d\n\n", data.TotalRows)

	buf.WriteString(strings.Join(data.Header, ", "))
	buf.WriteString("\n")
	for _, r := range data.Rows {
		buf.WriteString(strings.Join(r, ", "))
		buf.WriteString("\n")
	}
	if data.Omitted > 0 {
		fmt.Fprintf(&buf, "... %d more rows\n", data.Omitted)
	}
	if data.Run.OutputPath != "" {
		fmt.Fprintf(&buf, "\nFull results: %s\n", data.Run.OutputPath)
	}
	return buf.String()
}

const summaryTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 800px; margin: 0 auto; padding: 20px; background: #f5f5f5; }
        .container { background: white; border-radius: 8px; padding: 20px; }
        h1 { color: #1da1f2; margin-bottom: 5px; }
        .date { color: #666; margin-bottom: 20px; }
        table { border-collapse: collapse; width: 100%; font-size: 13px; }
        th { text-align: left; border-bottom: 2px solid #1da1f2; padding: 6px; }
        td { border-bottom: 1px solid #eee; padding: 6px; }
        .link { color: #1da1f2; text-decoration: none; }
        .footer { margin-top: 20px; padding-top: 15px; border-top: 1px solid #eee; color: #999; font-size: 12px; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <div class="date">{{.Date}}</div>
        {{if .Run.SeedPostURL}}<p><a href="{{.Run.SeedPostURL}}" class="link">Seed post →</a></p>{{end}}

        <table>
            <tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr>
            {{range .Rows}}
            <tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
            {{end}}
        </table>
        {{if .Omitted}}<p>{{.Omitted}} more rows in the output file.</p>{{end}}

        <div class="footer">
            {{.TotalRows}} rows{{if .Run.OutputPath}} · {{.Run.OutputPath}}{{end}} · Generated by xengage
        </div>
    </div>
</body>
</html>`
