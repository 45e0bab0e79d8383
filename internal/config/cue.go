// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

const schemaRoot = "#Config"

// ValidationError is a schema violation in a project file.
type ValidationError struct {
	// FilePath is the file being validated.
	FilePath string
	// Fields lists "<path>: <message>" for every violation.
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		return fmt.Sprintf("%s: %s", e.FilePath, e.Fields[0])
	}
	return fmt.Sprintf("%s: validation failed:\n  %s", e.FilePath, strings.Join(e.Fields, "\n  "))
}

// Unwrap returns ErrInvalidConfig.
func (e *ValidationError) Unwrap() error { return ErrInvalidConfig }

func schema(ctx *cue.Context) (cue.Value, error) {
	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}
	return schemaValue.LookupPath(cue.ParsePath(schemaRoot)), nil
}

// decodeCUE compiles a CUE project file, unifies it with #Config and decodes
// it into a map for Viper.
//
// Concrete(false) because every field is optional.
func decodeCUE(data []byte, path string) (map[string]any, error) {
	ctx := cuecontext.New()
	def, err := schema(ctx)
	if err != nil {
		return nil, err
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return nil, formatError(userValue.Err(), path)
	}

	unified := def.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return nil, formatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return nil, formatError(err, path)
	}
	return configMap, nil
}

// validateMap checks settings read from another format against #Config.
func validateMap(settings map[string]any, path string) error {
	ctx := cuecontext.New()
	def, err := schema(ctx)
	if err != nil {
		return err
	}
	value := ctx.Encode(settings)
	if value.Err() != nil {
		return formatError(value.Err(), path)
	}
	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return formatError(err, path)
	}
	return nil
}

// formatError turns CUE errors into a ValidationError whose entries carry
// JSON-path prefixes, e.g. "src_ignore[1]: conflicting values".
func formatError(err error, filePath string) error {
	if err == nil {
		return nil
	}

	cueErrs := cueerrors.Errors(err)
	if len(cueErrs) == 0 {
		return fmt.Errorf("%s: %w", filePath, err)
	}

	fields := make([]string, 0, len(cueErrs))
	for _, e := range cueErrs {
		pathStr := formatPath(cueerrors.Path(e))
		msg := e.Error()
		if pathStr != "" && strings.HasPrefix(msg, pathStr) {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, pathStr), ":"))
		}
		if pathStr != "" {
			msg = pathStr + ": " + msg
		}
		fields = append(fields, msg)
	}
	return &ValidationError{FilePath: filePath, Fields: fields}
}

// formatPath renders ["src_ignore", "1"] as "src_ignore[1]".
func formatPath(path []string) string {
	var b strings.Builder
	for i, part := range path {
		if i > 0 && isIndex(part) {
			b.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
