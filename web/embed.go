// Package web provides the embedded browser UI so the tool ships as a
// single binary.
package web

import "embed"

//go:embed static/*
var StaticFS embed.FS
