package server

import (
	"embed"
	"io/fs"
)

//go:embed static/*
var staticFiles embed.FS

const staticDiscoveryFile = "openid-configuration.json"

func StaticFilesFS() fs.FS {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic("Failed to create sub filesystem: " + err.Error())
	}
	return subFS
}

// staticDiscoveryDocument is the copy of inloggen.somtoday.nl's discovery
// document served while upstream cannot be reached.
func staticDiscoveryDocument() []byte {
	data, err := fs.ReadFile(StaticFilesFS(), staticDiscoveryFile)
	if err != nil {
		panic("Failed to read static discovery document: " + err.Error())
	}
	return data
}
