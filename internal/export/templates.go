package export

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var documentTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
		"paragraphs": paragraphs,
	}

	templateContent, err := templateFS.ReadFile("templates/document.html")
	if err != nil {
		// Fallback to built-in template if file not found
		documentTemplate = template.Must(template.New("document").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	documentTemplate = template.Must(template.New("document").Funcs(funcMap).Parse(string(templateContent)))
}

// ContainerWidthPx is the fixed width of the rendered container, A4 at 96 dpi.
const ContainerWidthPx = 794

// TemplateData holds data for the off-screen container
type TemplateData struct {
	Title     string
	WidthPx   int
	CreatedAt time.Time
	Questions []TemplateQuestion
}

// TemplateQuestion is one labeled block of the container.
type TemplateQuestion struct {
	Number   int
	Label    string
	Title    string
	Subtitle string
	Content  string
}

func newTemplateData(doc Document, now time.Time) TemplateData {
	data := TemplateData{
		Title:     strings.TrimSpace(doc.Title),
		WidthPx:   ContainerWidthPx,
		CreatedAt: now,
	}
	for i, q := range answered(doc) {
		data.Questions = append(data.Questions, TemplateQuestion{
			Number:   i + 1,
			Label:    questionLabel(i+1, q.Title),
			Title:    strings.TrimSpace(q.Title),
			Subtitle: strings.TrimSpace(q.Subtitle),
			Content:  q.Content,
		})
	}
	return data
}

// questionLabel is the heading of the n-th answered question in every format.
func questionLabel(n int, title string) string {
	if t := strings.TrimSpace(title); t != "" {
		return fmt.Sprintf("%d. %s", n, t)
	}
	return fmt.Sprintf("Question %d", n)
}

// RenderDocumentHTML renders the container page with provided data
func RenderDocumentHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// paragraphs splits answer text on blank-line boundaries, keeping single
// newlines inside a paragraph.
func paragraphs(content string) []string {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	var out []string
	for _, block := range strings.Split(normalized, "\n\n") {
		if trimmed := strings.TrimSpace(block); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
</head>
<body style="margin:0;background:#fff">
  <div id="export-root" style="width:{{.WidthPx}}px;padding:40px;box-sizing:border-box;font-family:sans-serif">
    <h1>{{.Title}}</h1>
    {{range .Questions}}<section><h2>{{.Label}}</h2>{{range paragraphs .Content}}<p>{{.}}</p>{{end}}</section>{{end}}
  </div>
</body>
</html>`
