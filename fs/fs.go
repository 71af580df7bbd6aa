// Package appfs exposes the app's embedded files.
package appfs

import "embed"

//go:embed migrations
var FS embed.FS
