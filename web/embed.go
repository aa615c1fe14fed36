// Package web provides the embedded static assets for the dashboard.
package web

import "embed"

// StaticFS contains the embedded static assets (HTML, CSS, JS).
//
//go:embed all:static
var StaticFS embed.FS
