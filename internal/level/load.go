package level

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/turtle/internal/engine"
)

//go:embed schema.cue
var schemaSource []byte

//go:embed builtin/*.cue
var builtinFS embed.FS

// ErrUnknownLevel is returned by Pack.Get for ids not in the pack.
var ErrUnknownLevel = errors.New("unknown level")

// Pack is a set of validated levels.
type Pack struct {
	levels map[string]*Config
}

// NewPack validates configs and indexes them by id.
func NewPack(configs ...*Config) (*Pack, error) {
	p := &Pack{levels: make(map[string]*Config, len(configs))}
	for _, c := range configs {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if _, dup := p.levels[c.ID]; dup {
			return nil, engine.NewConfigurationError(c.ID, "level %s defined twice", c.ID)
		}
		p.levels[c.ID] = c
	}
	return p, nil
}

// Get returns the level with the given id.
func (p *Pack) Get(id string) (*Config, error) {
	c, ok := p.levels[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLevel, id)
	}
	return c, nil
}

// IDs returns every level id in sorted order.
func (p *Pack) IDs() []string {
	ids := make([]string, 0, len(p.levels))
	for id := range p.levels {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of levels.
func (p *Pack) Len() int {
	return len(p.levels)
}

// Builtin loads the level pack embedded in the binary.
func Builtin() (*Pack, error) {
	ctx := cuecontext.New()
	schema, err := compileSchema(ctx)
	if err != nil {
		return nil, err
	}

	names, err := fs.Glob(builtinFS, "builtin/*.cue")
	if err != nil {
		return nil, fmt.Errorf("listing builtin levels: %w", err)
	}
	var configs []*Config
	for _, name := range names {
		src, err := builtinFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		v := ctx.CompileBytes(src, cue.Filename(path.Base(name)))
		if err := v.Err(); err != nil {
			return nil, engine.NewConfigurationError("", "compiling %s: %v", name, err)
		}
		cs, err := decodeLevels(schema, v)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cs...)
	}
	return NewPack(configs...)
}

// LoadDir loads every level from the CUE package in dir. Levels live under
// the top-level "level" struct, keyed by id.
func LoadDir(dir string) (*Pack, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("levels directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("levels directory: not a directory: %s", dir)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	ctx := cuecontext.New()
	schema, err := compileSchema(ctx)
	if err != nil {
		return nil, err
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, engine.NewConfigurationError("", "no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, engine.NewConfigurationError("", "loading CUE files: %v", inst.Err)
	}
	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, engine.NewConfigurationError("", "building CUE value: %v", err)
	}

	configs, err := decodeLevels(schema, v)
	if err != nil {
		return nil, err
	}
	if len(configs) == 0 {
		return nil, engine.NewConfigurationError("", "no levels found in %s", dir)
	}
	return NewPack(configs...)
}

// Parse compiles a single CUE document and returns its levels. It is
// useful for tests and for levels sent over the wire.
func Parse(src []byte) ([]*Config, error) {
	ctx := cuecontext.New()
	schema, err := compileSchema(ctx)
	if err != nil {
		return nil, err
	}
	v := ctx.CompileBytes(src, cue.Filename("levels.cue"))
	if err := v.Err(); err != nil {
		return nil, engine.NewConfigurationError("", "compiling levels: %v", err)
	}
	return decodeLevels(schema, v)
}

func compileSchema(ctx *cue.Context) (cue.Value, error) {
	v := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compiling level schema: %w", err)
	}
	return v.LookupPath(cue.ParsePath("#Level")), nil
}

// decodeLevels unifies every entry of v's "level" struct with the schema
// and decodes it. The id is taken from the field label.
func decodeLevels(schema, v cue.Value) ([]*Config, error) {
	levelsVal := v.LookupPath(cue.ParsePath("level"))
	if !levelsVal.Exists() {
		return nil, nil
	}
	iter, err := levelsVal.Fields()
	if err != nil {
		return nil, engine.NewConfigurationError("", "iterating levels: %v", err)
	}

	var configs []*Config
	for iter.Next() {
		id := iter.Label()
		entry := iter.Value().FillPath(cue.ParsePath("id"), id)
		unified := schema.Unify(entry)
		if err := unified.Validate(); err != nil {
			return nil, engine.NewConfigurationError(id, "level %s: %v", id, err)
		}
		var c Config
		if err := unified.Decode(&c); err != nil {
			return nil, engine.NewConfigurationError(id, "level %s: decoding: %v", id, err)
		}
		configs = append(configs, &c)
	}
	return configs, nil
}
