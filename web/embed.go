// Package web holds the page templates and browser assets, embedded into the
// binary.
package web

import "embed"

// TemplatesFS holds the page and its htmx partials.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds style.css and app.js.
//
//go:embed static/*
var StaticFS embed.FS
