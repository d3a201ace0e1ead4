// Package web holds the server-rendered templates, embedded into the binary.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"

	html "github.com/gofiber/template/html/v2"
)

//go:embed templates/*.html
var files embed.FS

// Engine returns the template engine for fiber.Config.Views.
func Engine() *html.Engine {
	sub, err := fs.Sub(files, "templates")
	if err != nil {
		panic(err)
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFunc("add", func(a, b int) int { return a + b })
	engine.AddFunc("title", func(s string) string {
		if s == "" {
			return s
		}
		s = strings.ToLower(strings.ReplaceAll(s, "_", " "))
		return strings.ToUpper(s[:1]) + s[1:]
	})
	return engine
}
