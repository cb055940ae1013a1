// Package web embeds the HTML templates and static assets of the web UI.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static templates
var content embed.FS

// StaticFS returns the stylesheet and other files served under /static/.
func StaticFS() (fs.FS, error) {
	return fs.Sub(content, "static")
}

// TemplatesFS returns the page templates, layout.html included.
func TemplatesFS() (fs.FS, error) {
	return fs.Sub(content, "templates")
}
