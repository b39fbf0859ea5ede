package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/turtle/internal/ir"
	"github.com/roach88/turtle/internal/session"
)

// Scenario is one learner's visit to one level.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Level is the level id to open.
	Level string `yaml:"level"`

	// LevelsDir loads levels from a CUE directory instead of the builtin
	// pack. Relative paths resolve against the scenario file.
	LevelsDir string `yaml:"levels_dir,omitempty"`

	// SessionID defaults to DefaultSessionID.
	SessionID string `yaml:"session_id,omitempty"`

	// MaxTicks overrides the default tick budget.
	MaxTicks int `yaml:"max_ticks,omitempty"`

	// Carry seeds programs saved by earlier levels, by carry key.
	Carry map[string]string `yaml:"carry,omitempty"`

	// Start checks the program the level opens with.
	Start *StartClause `yaml:"start,omitempty"`

	// Runs are submitted in order to the same session.
	Runs []RunStep `yaml:"runs"`

	// Assertions validate the command logs, final pose and stored attempts.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// DefaultSessionID is used when a scenario names none.
const DefaultSessionID = "test-session"

// StartClause is the expected starting program.
type StartClause struct {
	Carried bool `yaml:"carried"`
	Notice  bool `yaml:"notice"`
	// Contains is a substring the starting source must include.
	Contains string `yaml:"contains,omitempty"`
}

// RunStep is one program submission.
type RunStep struct {
	// Source is the compiled program, checkpoints and node ids included.
	Source string    `yaml:"source"`
	Nodes  []ir.Node `yaml:"nodes,omitempty"`

	// Mode is "instant" (default) or "paced".
	Mode string `yaml:"mode,omitempty"`

	// Expect is checked against the graded run. Nil skips the check.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause is the expected outcome of a run. Unset fields are not
// checked.
type ExpectClause struct {
	Tier      string   `yaml:"tier,omitempty"`
	Succeeded *bool    `yaml:"succeeded,omitempty"`
	Stars     *int     `yaml:"stars,omitempty"`
	Notice    *bool    `yaml:"notice,omitempty"`
	Missing   []string `yaml:"missing,omitempty"`
}

// Assertion validates a scenario's runs after they finish.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Run restricts log assertions to one run (1-based); 0 means all.
	Run int `yaml:"run,omitempty"`

	// Action is an action kind, e.g. "FD" (log_contains, log_count).
	Action string `yaml:"action,omitempty"`

	// Args are the expected leading args of the action (log_contains).
	Args []string `yaml:"args,omitempty"`

	// Count is the expected number of occurrences (log_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected kind order (log_order).
	Actions []string `yaml:"actions,omitempty"`

	// X, Y and Heading are the expected final pose (final_pose).
	X       *float64 `yaml:"x,omitempty"`
	Y       *float64 `yaml:"y,omitempty"`
	Heading *float64 `yaml:"heading,omitempty"`

	// Table, Where and Expect query the attempt store (final_state).
	Table  string         `yaml:"table,omitempty"`
	Where  map[string]any `yaml:"where,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`

	// Key is the carry key and Contains a substring of the saved program
	// (carried).
	Key      string `yaml:"key,omitempty"`
	Contains string `yaml:"contains,omitempty"`
}

// Assertion type constants.
const (
	AssertLogContains = "log_contains"
	AssertLogOrder    = "log_order"
	AssertLogCount    = "log_count"
	AssertFinalPose   = "final_pose"
	AssertFinalState  = "final_state"
	AssertCarried     = "carried"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads a scenario, resolving levels_dir against
// basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if scenario.LevelsDir != "" && !filepath.IsAbs(scenario.LevelsDir) && basePath != "" {
		scenario.LevelsDir = filepath.Join(basePath, scenario.LevelsDir)
	}
	if scenario.LevelsDir != "" {
		if _, err := os.Stat(scenario.LevelsDir); err != nil {
			return nil, fmt.Errorf("invalid scenario: levels_dir: %w", err)
		}
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Level == "" {
		return fmt.Errorf("level is required")
	}
	if s.MaxTicks < 0 {
		return fmt.Errorf("max_ticks must be non-negative")
	}
	if len(s.Runs) == 0 {
		return fmt.Errorf("runs list is required and must be non-empty")
	}

	for i, step := range s.Runs {
		if _, err := session.ParseMode(step.Mode); err != nil {
			return fmt.Errorf("runs[%d]: %w", i, err)
		}
		if step.Expect != nil && step.Expect.Tier != "" {
			if _, err := ir.ParseTier(step.Expect.Tier); err != nil {
				return fmt.Errorf("runs[%d].expect: %w", i, err)
			}
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], len(s.Runs)); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion, runs int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Run < 0 || a.Run > runs {
		return fmt.Errorf("assertions[%d]: run %d out of range 1..%d", index, a.Run, runs)
	}

	switch a.Type {
	case AssertLogContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for log_contains", index)
		}
	case AssertLogOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for log_order", index)
		}
	case AssertLogCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for log_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for log_count", index)
		}
	case AssertFinalPose:
		if a.X == nil && a.Y == nil && a.Heading == nil {
			return fmt.Errorf("assertions[%d]: one of x, y, heading is required for final_pose", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertCarried:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for carried", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
