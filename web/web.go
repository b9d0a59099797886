// Package web embeds the static front end.
package web

import (
	"embed"
	"io/fs"
)

//go:embed index.html app.js style.css
var files embed.FS

// FS returns the static files rooted at the site root.
func FS() fs.FS { return files }

// IndexFile is the landing page served at the site root.
const IndexFile = "index.html"
