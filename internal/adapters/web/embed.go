// Package web serves the lookup page and JSON API over HTTP.
// Binds to localhost only; there is no auth.
package web

import "embed"

//go:embed static/index.html
var staticFS embed.FS
