package export

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/template"

	"github.com/estate-tools/reportpipe/pkg/services/report"
)

type TableConfig struct {
	NameWidth  int
	ValueWidth int
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		NameWidth:  32,
		ValueWidth: 56,
	}
}

// Reporter prints a generation run summary to the console.
type Reporter struct {
	writer io.Writer
	config TableConfig
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{
		writer: writer,
		config: DefaultTableConfig(),
	}
}

type summary struct {
	Name          string
	Degraded      bool
	QueryCount    int
	FailedQueries []string
	Warnings      []string
	Variables     []variableRow
	OutputPath    string
}

type variableRow struct {
	Name  string
	Value string
}

func (c *Reporter) Handle(res *report.Result, outputPath string) error {
	funcMap := template.FuncMap{
		"formatRow": func(name string, value string) string {
			return fmt.Sprintf("| %-*s | %-*s |",
				c.config.NameWidth, name,
				c.config.ValueWidth, value)
		},
		"separator": func() string {
			return fmt.Sprintf("+%s+%s+",
				strings.Repeat("-", c.config.NameWidth+2),
				strings.Repeat("-", c.config.ValueWidth+2))
		},
	}

	tmpl := `
Report: {{.Name}}{{if .Degraded}} (DEGRADED){{end}}
Queries: {{.QueryCount}}{{if .FailedQueries}}, failed: {{range $i, $q := .FailedQueries}}{{if $i}}, {{end}}{{$q}}{{end}}{{end}}
{{if .Warnings}}
Warnings:
{{range .Warnings}}  - {{.}}
{{end}}{{end}}
{{separator}}
{{formatRow "Variable" "Value"}}
{{separator}}
{{range .Variables}}{{formatRow .Name .Value}}
{{end}}{{separator}}
{{if .OutputPath}}
Written to: {{.OutputPath}}
{{end}}`

	t, err := template.New("summary").Funcs(funcMap).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	return t.Execute(c.writer, c.summarize(res, outputPath))
}

func (c *Reporter) summarize(res *report.Result, outputPath string) summary {
	s := summary{
		Name:          res.Spec.Name,
		Degraded:      res.Values.Degraded,
		QueryCount:    len(res.Spec.Queries),
		FailedQueries: res.Values.FailedQueries,
		Warnings:      res.Values.Warnings,
		OutputPath:    outputPath,
	}

	names := make([]string, 0, len(res.Values.Values))
	for name := range res.Values.Values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		s.Variables = append(s.Variables, variableRow{
			Name:  name,
			Value: clip(fmt.Sprintf("%v", res.Values.Values[name]), c.config.ValueWidth),
		})
	}
	return s
}

func clip(s string, width int) string {
	if len(s) <= width {
		return s
	}
	return s[:width-3] + "..."
}
