// Package config implements the configuration loader: parsing the
// declarative YAML program document, validating it, and computing
// per-key history capacities from the expressions' subscript usage.
// The loader never touches the environment — the simulation core reads
// no environment variables; only the example driver's ambient settings
// (internal/config/env.go) do that, and they are not consumed here.
package config

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flowlace/cyclesim/internal/expr"
	"github.com/flowlace/cyclesim/internal/registry"
	"github.com/flowlace/cyclesim/internal/simerr"
)

// LagSafetyMargin and MinRecordLength implement the default
// history-sizing rule applied when record_length is not explicitly
// configured: capacity = max(ceil(k * LagSafetyMargin), MinRecordLength).
const (
	LagSafetyMargin = 1.5
	MinRecordLength = 10
)

// Mode mirrors clock.Mode without importing internal/clock, so the
// loader stays independent of the clock's wall-clock/pacing concerns
// and only deals with the document's declared mode string.
type Mode string

const (
	ModeRealtime  Mode = "REALTIME"
	ModeGenerator Mode = "GENERATOR"
)

// ClockDoc is the `clock:` section of the configuration document.
type ClockDoc struct {
	CycleTime      float64 `yaml:"cycle_time"`
	Mode           string  `yaml:"mode"`
	SampleInterval float64 `yaml:"sample_interval"`
	TimeFormat     string  `yaml:"time_format"`
	StartTime      string  `yaml:"start_time"`
}

// ProgramItemDoc is one entry of the `program:` list.
type ProgramItemDoc struct {
	Name       string             `yaml:"name"`
	Type       string             `yaml:"type"`
	InitArgs   map[string]float64 `yaml:"init_args"`
	Expression string             `yaml:"expression"`
}

// document is the raw YAML shape; Load immediately turns it into a
// validated Config.
type document struct {
	Clock        *ClockDoc        `yaml:"clock"`
	RecordLength *int             `yaml:"record_length"`
	Program      []ProgramItemDoc `yaml:"program"`
}

// Item is a validated program item, ready for the engine to build a
// node from once instances exist. The engine re-parses Expression
// itself when constructing each node (node.NewAlgorithmNode /
// node.NewExpressionNode take the raw expression string), so Load does
// not carry the parsed tree forward — only its side effects, the lag
// requirements collected into Config.LagRequired, outlive parsing here.
type Item struct {
	Name       string
	IsVariable bool
	Type       string
	InitArgs   map[string]float64
	Expression string
}

// Config is the loader's output: everything the engine needs to build
// instances, nodes, and size the store, in one immutable value.
type Config struct {
	CycleTime      float64
	Mode           Mode
	SampleInterval float64
	TimeFormat     string
	StartTime      time.Time

	Items        []Item
	Capacities   map[string]int // store key -> history capacity (0 = no buffer)
	LagRequired  map[string]int // store key -> max lag k observed, for diagnostics
}

// Load parses and validates raw YAML document data against reg (the
// program catalog of registered algorithm types), computes lag
// requirements across every item's expression, and sizes history
// capacity per store key. It returns a *simerr.ConfigurationError for
// any malformed document, unknown type, or expression of the wrong shape
// for its item; an expression that fails to parse is returned as the
// parser's *simerr.ExpressionError (KindSyntax). The engine is never
// constructed when Load fails.
func Load(data []byte, reg *registry.Registry) (*Config, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, simerr.NewConfigurationError("", "malformed YAML document", err)
	}

	cfg := &Config{
		CycleTime: 1,
		Mode:      ModeGenerator,
	}
	if doc.Clock != nil {
		if doc.Clock.CycleTime <= 0 {
			return nil, simerr.NewConfigurationError("", "clock.cycle_time must be > 0", nil)
		}
		cfg.CycleTime = doc.Clock.CycleTime
		switch doc.Clock.Mode {
		case "", string(ModeGenerator):
			cfg.Mode = ModeGenerator
		case string(ModeRealtime):
			cfg.Mode = ModeRealtime
		default:
			return nil, simerr.NewConfigurationError("", fmt.Sprintf("unknown clock.mode %q", doc.Clock.Mode), nil)
		}
		if doc.Clock.SampleInterval > 0 && doc.Clock.SampleInterval < cfg.CycleTime {
			return nil, simerr.NewConfigurationError("", "clock.sample_interval must be >= cycle_time", nil)
		}
		cfg.SampleInterval = doc.Clock.SampleInterval
		cfg.TimeFormat = doc.Clock.TimeFormat
		start, err := parseStartTime(doc.Clock.StartTime)
		if err != nil {
			return nil, simerr.NewConfigurationError("", "malformed clock.start_time", err)
		}
		cfg.StartTime = start
	} else {
		cfg.StartTime = time.Unix(0, 0).UTC()
	}

	seen := make(map[string]bool, len(doc.Program))
	instanceNames := make(map[string]struct{}, len(doc.Program))
	for _, p := range doc.Program {
		if p.Type != "Variable" {
			instanceNames[p.Name] = struct{}{}
		}
	}

	items := make([]Item, 0, len(doc.Program))
	lagReqs := map[string]int{}

	for _, p := range doc.Program {
		if p.Name == "" {
			return nil, simerr.NewConfigurationError("", "program item missing name", nil)
		}
		if seen[p.Name] {
			return nil, simerr.NewConfigurationError(p.Name, "duplicate program item name", nil)
		}
		seen[p.Name] = true

		isVariable := p.Type == "Variable"
		if !isVariable {
			if p.Type == "" {
				return nil, simerr.NewConfigurationError(p.Name, "algorithm item missing type", nil)
			}
			if !reg.IsAlgorithmType(p.Type) {
				return nil, simerr.NewConfigurationError(p.Name, fmt.Sprintf("unregistered algorithm type %q", p.Type), nil)
			}
		}

		tree, err := expr.Parse(p.Expression)
		if err != nil {
			return nil, err
		}
		tree = expr.RewriteInstanceNames(tree, instanceNames)

		if isVariable {
			assign, ok := tree.(*expr.AssignNode)
			if !ok || assign.Target != p.Name {
				return nil, simerr.NewConfigurationError(p.Name, fmt.Sprintf("variable item expression must be %q = <rhs>", p.Name), nil)
			}
		} else {
			if err := validateAlgorithmCallShape(tree, p.Name, p.Expression); err != nil {
				return nil, err
			}
		}

		ExtractLagRequirements(tree, lagReqs)

		items = append(items, Item{
			Name:       p.Name,
			IsVariable: isVariable,
			Type:       p.Type,
			InitArgs:   p.InitArgs,
			Expression: p.Expression,
		})
	}

	cfg.Items = items
	cfg.LagRequired = lagReqs
	cfg.Capacities = computeCapacities(lagReqs, doc.RecordLength)
	return cfg, nil
}

// ExtractLagRequirements re-exports expr.ExtractLagRequirements under
// the loader's own name for callers that only import internal/config.
func ExtractLagRequirements(tree expr.Node, reqs map[string]int) {
	expr.ExtractLagRequirements(tree, reqs)
}

func validateAlgorithmCallShape(tree expr.Node, name, expression string) error {
	call, ok := tree.(*expr.CallNode)
	if !ok {
		return simerr.NewConfigurationError(name, fmt.Sprintf("algorithm item expression must be %q, got a different shape", name+".execute(...)"), nil)
	}
	attr, ok := call.Func.(*expr.AttributeNode)
	if !ok || attr.Attr != "execute" {
		return simerr.NewConfigurationError(name, fmt.Sprintf("algorithm item expression must call %s.execute(...)", name), nil)
	}
	target, ok := attr.Value.(*expr.NameNode)
	if !ok || target.Name != name {
		return simerr.NewConfigurationError(name, fmt.Sprintf("algorithm item expression must address its own instance %q", name), nil)
	}
	if len(call.Args) > 0 {
		return simerr.NewConfigurationError(name, "algorithm item expression accepts only keyword arguments", nil)
	}
	_ = expression
	return nil
}

func computeCapacities(lagReqs map[string]int, recordLength *int) map[string]int {
	capacities := make(map[string]int, len(lagReqs))
	for key, k := range lagReqs {
		if recordLength != nil {
			capacities[key] = *recordLength
			continue
		}
		c := int(math.Ceil(float64(k) * LagSafetyMargin))
		if c < MinRecordLength {
			c = MinRecordLength
		}
		capacities[key] = c
	}
	return capacities
}

func parseStartTime(s string) (time.Time, error) {
	if s == "" {
		return time.Unix(0, 0).UTC(), nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Unix(0, 0).UTC().Add(time.Duration(secs * float64(time.Second))), nil
	}
	return time.Parse(time.RFC3339, s)
}
