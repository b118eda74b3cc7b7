//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Embeddings adds an embedding column to a CSV export: mage embeddings in.csv out.csv.
func Embeddings(in, out string) error {
	mg.Deps(Build)
	return sh.RunV(binPath, "generate-embeddings", in, out)
}

// Import loads a CSV with embeddings into the configured store: mage import out.csv.
func Import(csv string) error {
	mg.Deps(Build)
	return sh.RunV(binPath, "import-papers", csv)
}

// Serve builds and runs the HTTP API.
func Serve() error {
	mg.Deps(Build)
	return sh.RunV(binPath, "serve")
}
