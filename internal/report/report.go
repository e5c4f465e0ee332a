// Package report writes the static HTML index that embeds each session's
// chart in session order.
package report

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/luki/heatlog/internal/history"
	"github.com/luki/heatlog/internal/sensor"
)

// Report is the content of one index page.
type Report struct {
	Title     string
	RunID     string
	Source    string
	Generated time.Time
	Sessions  []Section
}

// Section describes one session and its chart.
type Section struct {
	Index   int
	Chart   string // image path relative to the report
	Table   string
	Start   time.Time
	End     time.Time
	Rows    int
	Devices []DeviceStat
}

// DeviceStat summarizes one device within a session.
type DeviceStat struct {
	Name    string
	Min     float64
	Avg     float64
	Peak    float64
	Missing int
	HasData bool
}

// Stats summarizes every device of a session in first-seen order.
func Stats(s *history.Store, aliases sensor.Aliases) []DeviceStat {
	stats := make([]DeviceStat, 0, s.Len())
	for _, device := range s.Order {
		b := s.Get(device)
		st := DeviceStat{Name: aliases.Name(device), Missing: b.Gaps, HasData: b.HasData()}
		if st.HasData {
			st.Min, st.Avg, st.Peak = b.Min, b.Avg(), b.Peak
		}
		stats = append(stats, st)
	}
	return stats
}

var page = template.Must(template.New("report").Funcs(template.FuncMap{
	"clock": func(t time.Time) string { return t.Format("2006-01-02 15:04:05") },
	"temp":  func(v float64) string { return fmt.Sprintf("%.1f", v) },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-bottom: 1em; }
td, th { border: 1px solid #ccc; padding: 2px 8px; text-align: right; }
th:first-child, td:first-child { text-align: left; }
img { max-width: 100%; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>source {{.Source}} &middot; run {{.RunID}} &middot; generated {{clock .Generated}}</p>
{{range .Sessions}}
<section id="session{{.Index}}">
<h2>Session {{.Index}}</h2>
{{if .Rows}}<p>{{clock .Start}} to {{clock .End}} &middot; {{.Rows}} rows &middot; {{.Table}}</p>{{else}}<p>no rows &middot; {{.Table}}</p>{{end}}
{{if .Chart}}<img src="{{.Chart}}" alt="session {{.Index}} chart">{{end}}
{{if .Devices}}<table>
<tr><th>device</th><th>min</th><th>avg</th><th>peak</th><th>missing</th></tr>
{{range .Devices}}<tr><td>{{.Name}}</td>{{if .HasData}}<td>{{temp .Min}}</td><td>{{temp .Avg}}</td><td>{{temp .Peak}}</td>{{else}}<td>-</td><td>-</td><td>-</td>{{end}}<td>{{.Missing}}</td></tr>
{{end}}</table>{{end}}
</section>
{{end}}
</body>
</html>
`))

// Render writes the report as HTML.
func Render(w io.Writer, r Report) error {
	return page.Execute(w, r)
}

// Write renders the report to path. Chart paths are made relative to the
// report's directory.
func Write(path string, r Report) error {
	dir := filepath.Dir(path)
	for i := range r.Sessions {
		if r.Sessions[i].Chart == "" {
			continue
		}
		if rel, err := filepath.Rel(dir, r.Sessions[i].Chart); err == nil {
			r.Sessions[i].Chart = filepath.ToSlash(rel)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Render(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
