package web

import "embed"

// Content holds the embedded dashboard shell.
//
//go:embed index.html
var Content embed.FS
