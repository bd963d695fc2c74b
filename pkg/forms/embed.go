package forms

import (
	"embed"
	"io/fs"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// IDs of the forms shipped with the module.
const (
	BusinessSpecification = "business-specification"
	Requirements          = "requirements"
	TestCase              = "test-case"
)

// BuiltinFS exposes the embedded definitions.
func BuiltinFS() fs.FS {
	sub, err := fs.Sub(builtinFS, "builtin")
	if err != nil {
		return builtinFS
	}
	return sub
}

// Builtin loads the embedded definitions.
func Builtin() (*Registry, error) {
	return LoadFS(BuiltinFS())
}
