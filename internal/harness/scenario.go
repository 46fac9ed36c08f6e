package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/loopsched/internal/plan"
	"github.com/roach88/loopsched/internal/sched"
)

// Scenario describes one loop and what its executors should receive.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	Domain string `yaml:"domain"`
	Op     string `yaml:"op"`

	// Kind is the thread-level schedule. Not used by op team.
	Kind string `yaml:"kind,omitempty"`

	// Dist is the team-level schedule of op dist.
	Dist string `yaml:"dist,omitempty"`

	Chunk int64 `yaml:"chunk,omitempty"`
	Lower Value `yaml:"lower"`
	Upper Value `yaml:"upper"`

	// Incr defaults to 1 when omitted.
	Incr *int64 `yaml:"incr,omitempty"`

	Executors  uint32 `yaml:"executors,omitempty"`
	Serialized bool   `yaml:"serialized,omitempty"`
	Teams      uint32 `yaml:"teams,omitempty"`
	Threads    uint32 `yaml:"threads,omitempty"`

	// Loc is the source-location token, e.g. ";kernel.c;compute;12;5;;".
	Loc string `yaml:"loc,omitempty"`

	// Check turns consistency checking off when false. Defaults to true.
	Check *bool `yaml:"check,omitempty"`

	// Error is the expected consistency error code, e.g. "ZERO_INCREMENT".
	// A scenario with Error set has no expect rows.
	Error string `yaml:"error,omitempty"`

	// Expect lists rows that must match the plan. Executors not listed
	// are still covered by the coverage check.
	Expect []ExpectRow `yaml:"expect,omitempty"`
}

// ExpectRow is the expected assignment of one executor. For op for the
// executor is Thread and Team is 0; for op team Thread is 0.
type ExpectRow struct {
	Team   uint32 `yaml:"team"`
	Thread uint32 `yaml:"thread"`
	Lower  Value  `yaml:"lower"`
	Upper  Value  `yaml:"upper"`
	Last   bool   `yaml:"last"`

	// Optional fields are compared only when present.
	Empty     *bool  `yaml:"empty,omitempty"`
	Stride    *int64 `yaml:"stride,omitempty"`
	UpperDist Value  `yaml:"upper_dist,omitempty"`
}

// Value is a loop bound kept in its source text until the scenario's
// domain is known.
type Value string

// UnmarshalYAML takes the scalar's text as written, so that bounds
// outside the int64 range survive decoding.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: bound must be a scalar", node.Line)
	}
	*v = Value(node.Value)
	return nil
}

// KindResolver maps a schedule name to a kind. config.Config.ResolveKind
// is one; sched.ParseKind is the default.
type KindResolver func(string) (sched.Kind, error)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "executor:" vs "executors:"
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

// Request converts the scenario into a planner request, resolving kind
// names with resolve.
func (s *Scenario) Request(resolve KindResolver) (plan.Request, error) {
	if resolve == nil {
		resolve = sched.ParseKind
	}
	d, err := plan.ParseDomain(s.Domain)
	if err != nil {
		return plan.Request{}, err
	}
	op, err := plan.ParseOp(s.Op)
	if err != nil {
		return plan.Request{}, err
	}

	req := plan.Request{
		Domain:     d,
		Op:         op,
		Chunk:      s.Chunk,
		Lower:      string(s.Lower),
		Upper:      string(s.Upper),
		Incr:       s.incr(),
		Executors:  s.Executors,
		Serialized: s.Serialized,
		Teams:      s.Teams,
		Threads:    s.Threads,
		Loc:        sched.Location(s.Loc),
	}
	if op != plan.OpTeam {
		if req.Kind, err = resolve(s.Kind); err != nil {
			return plan.Request{}, fmt.Errorf("kind: %w", err)
		}
	}
	if op == plan.OpDist {
		if req.Dist, err = resolve(s.Dist); err != nil {
			return plan.Request{}, fmt.Errorf("dist: %w", err)
		}
	}
	return req, nil
}

func (s *Scenario) incr() int64 {
	if s.Incr == nil {
		return 1
	}
	return *s.Incr
}

func (s *Scenario) checking() bool {
	return s.Check == nil || *s.Check
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if _, err := plan.ParseDomain(s.Domain); err != nil {
		return err
	}

	op, err := plan.ParseOp(s.Op)
	if err != nil {
		return err
	}
	switch op {
	case plan.OpFor:
		if s.Kind == "" {
			return fmt.Errorf("kind is required for op for")
		}
	case plan.OpDist:
		if s.Kind == "" || s.Dist == "" {
			return fmt.Errorf("kind and dist are required for op dist")
		}
	}

	if s.Lower == "" || s.Upper == "" {
		return fmt.Errorf("lower and upper are required")
	}

	switch {
	case s.Error != "" && len(s.Expect) > 0:
		return fmt.Errorf("error and expect are mutually exclusive")
	case s.Error == "" && len(s.Expect) == 0:
		return fmt.Errorf("expect list is required and must be non-empty")
	}

	for i, row := range s.Expect {
		if row.Lower == "" || row.Upper == "" {
			return fmt.Errorf("expect[%d]: lower and upper are required", i)
		}
		if op == plan.OpFor && row.Team != 0 {
			return fmt.Errorf("expect[%d]: team must be 0 for op for", i)
		}
	}
	return nil
}
