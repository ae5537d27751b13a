package backup

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaCUE string

// validate checks a JSON document against the named schema definition.
// A cue.Context is not safe for concurrent use, so each call builds its own.
func validate(definition, filename string, data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath(definition))
	if !def.Exists() {
		return fmt.Errorf("schema has no %s", definition)
	}

	doc := ctx.CompileBytes(data, cue.Filename(filename))
	if err := doc.Err(); err != nil {
		return fmt.Errorf("parse %s: %w", filename, err)
	}

	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	return nil
}
