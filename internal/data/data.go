// Package data embeds the service models shipped with the SDK.
//
// The tree follows the <service>/<api-version>/service-2.json layout, with
// optional paginators-1.json and waiters-2.json files, and a top level
// endpoints.json.
package data

import (
	"embed"
	"io/fs"
)

//go:embed all:models
var models embed.FS

// Models returns the embedded model tree, rooted at the service directories.
func Models() fs.FS {
	sub, err := fs.Sub(models, "models")
	if err != nil {
		// The sub directory is embedded at build time.
		panic(err)
	}
	return sub
}
