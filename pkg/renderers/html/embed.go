package html

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.tmpl templates/fields/*.tmpl
var embeddedTemplates embed.FS

const (
	formTemplate  = "templates/form.tmpl"
	fieldTemplate = "templates/field.tmpl"
)

// TemplatesFS exposes the embedded template bundle so callers can copy and
// override individual templates.
func TemplatesFS() fs.FS {
	return embeddedTemplates
}
