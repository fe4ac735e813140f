package web

import "embed"

// Templates embeds HTML report templates.
//
//go:embed templates/reports/*.html
var Templates embed.FS
