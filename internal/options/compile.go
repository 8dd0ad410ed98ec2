package options

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaSource []byte

//go:embed builtin.cue
var builtinSource []byte

// BuiltinIdentifier is the resource identifier that resolves to the built-in
// catalogue without any fetching.
const BuiltinIdentifier = "head"

var builtin = sync.OnceValues(func() ([]GlobalOption, error) {
	return CompileSources(map[string][]byte{"builtin.cue": builtinSource})
})

// Builtin returns the catalogue shipped with the binary.
func Builtin() ([]GlobalOption, error) {
	opts, err := builtin()
	if err != nil {
		return nil, err
	}
	out := make([]GlobalOption, len(opts))
	copy(out, opts)
	return out, nil
}

var builtinDigest = sync.OnceValues(func() (string, error) {
	opts, err := builtin()
	if err != nil {
		return "", err
	}
	return Digest(opts)
})

// BuiltinDigest returns the digest of the built-in catalogue.
func BuiltinDigest() (string, error) {
	return builtinDigest()
}

// CompileSources unifies the named CUE sources with the catalogue schema and
// compiles the result. Sources are unified in name order.
func CompileSources(sources map[string][]byte) ([]GlobalOption, error) {
	if len(sources) == 0 {
		return nil, &CompileError{Field: "option", Message: "no catalogue sources"}
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f := ctx.CompileBytes(sources[name], cue.Filename(name))
		if err := f.Err(); err != nil {
			return nil, formatCUEError(err)
		}
		v = v.Unify(f)
	}

	return Compile(v)
}

// Compile extracts the options of a catalogue value. The value must have an
// "option" struct; every field of it is one option.
func Compile(v cue.Value) ([]GlobalOption, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	optVal := v.LookupPath(cue.ParsePath("option"))
	if !optVal.Exists() {
		return nil, &CompileError{
			Field:   "option",
			Message: "catalogue has no options",
			Pos:     v.Pos(),
		}
	}

	iter, err := optVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var opts []GlobalOption
	for iter.Next() {
		opt, err := compileOption(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		opts = append(opts, opt)
	}

	if len(opts) == 0 {
		return nil, &CompileError{
			Field:   "option",
			Message: "catalogue has no options",
			Pos:     optVal.Pos(),
		}
	}
	return opts, nil
}

func compileOption(key string, v cue.Value) (GlobalOption, error) {
	opt := GlobalOption{Key: key}

	var err error
	if opt.Name, err = stringField(v, "name"); err != nil {
		return opt, err
	}
	if opt.Description, err = stringField(v, "description"); err != nil {
		return opt, err
	}
	if opt.Flag, err = stringField(v, "flag"); err != nil {
		return opt, err
	}
	typ, err := stringField(v, "type")
	if err != nil {
		return opt, err
	}
	opt.Type = Type(typ)

	choicesVal := v.LookupPath(cue.ParsePath("choices"))
	noPrefixVal := v.LookupPath(cue.ParsePath("support_no_prefix"))
	valuesVal := v.LookupPath(cue.ParsePath("values"))

	switch opt.Type {
	case TypeString:
		if noPrefixVal.Exists() || valuesVal.Exists() {
			return opt, &CompileError{
				Field:   "option." + key,
				Message: "string options cannot set support_no_prefix or values",
				Pos:     v.Pos(),
			}
		}
		if choicesVal.Exists() {
			if err := choicesVal.Decode(&opt.Choices); err != nil {
				return opt, formatCUEError(err)
			}
		}

	case TypeBoolean:
		if choicesVal.Exists() {
			return opt, &CompileError{
				Field:   "option." + key,
				Message: "boolean options cannot set choices",
				Pos:     choicesVal.Pos(),
			}
		}
		if noPrefixVal.Exists() {
			if opt.SupportNoPrefix, err = noPrefixVal.Bool(); err != nil {
				return opt, formatCUEError(err)
			}
		}
		if valuesVal.Exists() {
			opt.Values = &TrueFalse{}
			if err := valuesVal.Decode(opt.Values); err != nil {
				return opt, formatCUEError(err)
			}
		}

	default:
		return opt, &CompileError{
			Field:   "option." + key + ".type",
			Message: fmt.Sprintf("unknown option type %q", typ),
			Pos:     v.Pos(),
		}
	}

	return opt, nil
}

func stringField(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// CompileError is a catalogue that does not describe valid options.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
