package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/turtle/internal/engine"
	"github.com/roach88/turtle/internal/ir"
	"github.com/roach88/turtle/internal/level"
)

// ProgramFile is a program saved from the editor: the compiled source and
// the authored nodes. A file that is not YAML is read as bare source with
// no nodes.
type ProgramFile struct {
	Source string    `yaml:"source"`
	Nodes  []ir.Node `yaml:"nodes,omitempty"`
}

// loadPack loads the level pack selected by --levels.
func loadPack(opts *RootOptions, f *OutputFormatter) (*level.Pack, error) {
	if opts.Levels == "" {
		pack, err := level.Builtin()
		if err != nil {
			return nil, f.fail(ExitCommandError, ErrCodeLoadFailed, "failed to load builtin levels", err)
		}
		return pack, nil
	}
	if _, err := os.Stat(opts.Levels); err != nil {
		return nil, f.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("levels directory not found: %s", opts.Levels), nil)
	}
	f.VerboseLog("Loading levels from %s", opts.Levels)
	pack, err := level.LoadDir(opts.Levels)
	if err != nil {
		code := ErrCodeLoadFailed
		if engine.IsConfigurationError(err) {
			code = ErrCodeConfiguration
		}
		return nil, f.fail(ExitCommandError, code, "failed to load levels", err)
	}
	return pack, nil
}

// getLevel looks up a level id, reporting unknown ids as command errors.
func getLevel(pack *level.Pack, id string, f *OutputFormatter) (*level.Config, error) {
	cfg, err := pack.Get(id)
	if errors.Is(err, level.ErrUnknownLevel) {
		return nil, f.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("unknown level %q (have %s)", id, strings.Join(pack.IDs(), ", ")), nil)
	}
	if err != nil {
		return nil, f.fail(ExitCommandError, ErrCodeGeneric, "level lookup failed", err)
	}
	return cfg, nil
}

// readProgram reads a program file.
func readProgram(path string) (*ProgramFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read program: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var p ProgramFile
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("failed to parse program %s: %w", path, err)
		}
		return &p, nil
	}
	return &ProgramFile{Source: string(data)}, nil
}

// loadProgram reads the program argument, or falls back to the level's
// answer when there is none.
func loadProgram(args []string, cfg *level.Config, f *OutputFormatter) (*ProgramFile, error) {
	if len(args) == 0 {
		f.VerboseLog("No program given; using the answer to level %s", cfg.ID)
		return &ProgramFile{Source: cfg.Answer}, nil
	}
	p, err := readProgram(args[0])
	if err != nil {
		return nil, f.fail(ExitCommandError, ErrCodeProgram, "failed to load program", err)
	}
	return p, nil
}

// programEditor serves a program file as the session editor. Highlights
// are printed in verbose mode.
type programEditor struct {
	program *ProgramFile
	out     *OutputFormatter
}

func (e *programEditor) Source() string { return e.program.Source }

func (e *programEditor) Nodes() []ir.Node { return e.program.Nodes }

func (e *programEditor) Highlight(nodeID string) {
	if nodeID != "" {
		e.out.VerboseLog("  > %s", nodeID)
	}
}
