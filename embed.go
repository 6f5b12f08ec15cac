package postdesk

import "embed"

// EmbeddedAssets contains the assets shipped with the engine: site.css,
// editor.js and the default robots.txt.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
