// Package data provides the default bartenders, patrons and scripts
package data

import "embed"

// contentFS embeds the default content tree at build time.
//
//go:embed bartenders patrons scripts
var contentFS embed.FS

// FS returns the embedded filesystem containing the default content
func FS() embed.FS {
	return contentFS
}
