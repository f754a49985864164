package ui

import (
	"html/template"
	"net/http"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// handleDocs renders the embedded usage guide from markdown.
func (a *App) handleDocs(w http.ResponseWriter, r *http.Request) {
	source, err := embeddedFiles.ReadFile("docs/usage.md")
	if err != nil {
		http.Error(w, "Documentation not available", http.StatusInternalServerError)
		return
	}

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	rendered := markdown.Render(p.Parse(source), renderer)

	a.renderTemplate(w, "docs.html", map[string]interface{}{
		"Content": template.HTML(rendered),
	})
}
