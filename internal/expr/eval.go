package expr

import (
	"fmt"
	"math"

	"github.com/flowlace/cyclesim/internal/registry"
	"github.com/flowlace/cyclesim/internal/simerr"
)

// Store is the subset of *store.Store the evaluator needs. Declared
// locally so internal/expr does not import internal/store, keeping the
// dependency direction the loader and node packages expect (both import
// expr and store independently).
type Store interface {
	Get(name string, def float64) float64
	GetWithLag(name string, k int, def float64) float64
	Has(name string) bool
}

// Evaluator interprets a rewritten expression tree against a store, a
// map of live algorithm instances, and the stateless function catalog.
// It holds no state of its own across calls; a fresh Evaluator (or the
// same one reused) evaluates any number of trees against the same
// environment.
type Evaluator struct {
	store     Store
	instances map[string]registry.Algorithm
	functions *registry.Registry
	src       string // original expression text, for error messages
}

// NewEvaluator binds an evaluator to a store, the live instance map, and
// the function catalog. src is the original expression text this
// evaluator will report in any ExpressionError it raises.
func NewEvaluator(st Store, instances map[string]registry.Algorithm, functions *registry.Registry, src string) *Evaluator {
	return &Evaluator{store: st, instances: instances, functions: functions, src: src}
}

func (ev *Evaluator) errf(kind simerr.ExpressionErrorKind, format string, args ...interface{}) error {
	return simerr.NewExpressionError(kind, ev.src, fmt.Errorf(format, args...))
}

// value is what evaluation of a subtree produces: either a scalar or a
// proxy over an instance/attribute, which arithmetic coerces to scalar
// and which subscript/attribute/call postfixes can act on directly.
type value struct {
	scalar       float64
	isScalar     bool
	instance     registry.Algorithm // set when this is an InstanceProxy
	instName     string
	attrOwnerKey string // set when this is an AttributeProxy: the store key it reads/lags against, "instName.attrName"
}

func scalarValue(f float64) value { return value{scalar: f, isScalar: true} }

// toScalar coerces v to a float64. An AttributeProxy reads its current
// value from the store rather than calling the instance directly: the
// store is what AlgorithmNode.Step populates after each Execute, so
// reading through it (instead of the live instance) gives every
// expression in the program, including ones belonging to other nodes,
// the committed value: a node stepped after the instance's node sees
// this cycle's output, one stepped before it sees the previous cycle's.
func (ev *Evaluator) toScalar(v value) (float64, error) {
	if v.isScalar {
		return v.scalar, nil
	}
	if v.attrOwnerKey != "" {
		if !ev.store.Has(v.attrOwnerKey) {
			return 0, ev.errf(simerr.KindName, "undefined name %q", v.attrOwnerKey)
		}
		return ev.store.Get(v.attrOwnerKey, 0), nil
	}
	return 0, ev.errf(simerr.KindType, "instance %q cannot be used as a scalar", v.instName)
}

// Eval evaluates n (already rewritten by RewriteInstanceNames) and
// returns its scalar result.
func (ev *Evaluator) Eval(n Node) (float64, error) {
	v, err := ev.evalNode(n)
	if err != nil {
		return 0, err
	}
	return ev.toScalar(v)
}

func (ev *Evaluator) evalNode(n Node) (value, error) {
	switch t := n.(type) {
	case *NumberNode:
		return scalarValue(t.Value), nil

	case *NameNode:
		if inst, ok := ev.instances[t.Name]; ok {
			return value{instance: inst, instName: t.Name}, nil
		}
		if ev.functions != nil && ev.functions.IsFunctionName(t.Name) {
			return value{}, ev.errf(simerr.KindType, "function %q used as a value", t.Name)
		}
		if !ev.store.Has(t.Name) {
			return value{}, ev.errf(simerr.KindName, "undefined name %q", t.Name)
		}
		return scalarValue(ev.store.Get(t.Name, 0)), nil

	case *UnaryNode:
		x, err := ev.Eval(t.X)
		if err != nil {
			return value{}, err
		}
		if t.Op == "-" {
			return scalarValue(-x), nil
		}
		return scalarValue(x), nil

	case *BinaryNode:
		return ev.evalBinary(t)

	case *AttributeNode:
		base, err := ev.evalNode(t.Value)
		if err != nil {
			return value{}, err
		}
		if base.instance == nil {
			return value{}, ev.errf(simerr.KindType, "attribute access %q on a non-instance value", t.Attr)
		}
		return value{attrOwnerKey: base.instName + "." + t.Attr, instName: base.instName}, nil

	case *SubscriptNode:
		return ev.evalSubscript(t)

	case *CallNode:
		return ev.evalCall(t)

	case *AssignNode:
		return ev.evalNode(t.Value)

	default:
		return value{}, ev.errf(simerr.KindEvaluation, "unhandled node type %T", n)
	}
}

func (ev *Evaluator) evalBinary(b *BinaryNode) (value, error) {
	x, err := ev.Eval(b.X)
	if err != nil {
		return value{}, err
	}
	y, err := ev.Eval(b.Y)
	if err != nil {
		return value{}, err
	}
	switch b.Op {
	case "+":
		return scalarValue(x + y), nil
	case "-":
		return scalarValue(x - y), nil
	case "*":
		return scalarValue(x * y), nil
	case "/":
		if y == 0 {
			return value{}, ev.errf(simerr.KindArithmetic, "division by zero")
		}
		return scalarValue(x / y), nil
	case "//":
		if y == 0 {
			return value{}, ev.errf(simerr.KindArithmetic, "division by zero")
		}
		return scalarValue(math.Floor(x / y)), nil
	case "%":
		if y == 0 {
			return value{}, ev.errf(simerr.KindArithmetic, "modulo by zero")
		}
		return scalarValue(math.Mod(math.Mod(x, y)+y, y)), nil
	case "**":
		return scalarValue(math.Pow(x, y)), nil
	default:
		return value{}, ev.errf(simerr.KindEvaluation, "unhandled operator %q", b.Op)
	}
}

// evalSubscript implements `x[-k]` by delegating to the store's
// get_with_lag through whichever proxy x evaluated to. Only
// Name/Attribute bases reaching a proxy make sense here: subscripting an
// arbitrary scalar expression has no lag semantics and is a type error.
func (ev *Evaluator) evalSubscript(s *SubscriptNode) (value, error) {
	k := -s.Index
	if k < 0 {
		return value{}, ev.errf(simerr.KindEvaluation, "subscript index %d looks forward in time, which is not supported", s.Index)
	}
	// A bare plain-variable name reads its own store key through the lag
	// history instead of first collapsing to its current scalar.
	if name, ok := s.Value.(*NameNode); ok {
		_, isInstance := ev.instances[name.Name]
		isFunction := ev.functions != nil && ev.functions.IsFunctionName(name.Name)
		if !isInstance && !isFunction {
			return scalarValue(ev.store.GetWithLag(name.Name, k, 0)), nil
		}
	}
	base, err := ev.evalNode(s.Value)
	if err != nil {
		return value{}, err
	}

	var key string
	switch {
	case base.attrOwnerKey != "":
		key = base.attrOwnerKey
	case base.instance != nil:
		key = base.instName + ".out"
	default:
		return value{}, ev.errf(simerr.KindType, "value is not subscriptable")
	}
	return scalarValue(ev.store.GetWithLag(key, k, 0)), nil
}

// evalCall implements both stateless function calls and the one
// permitted attribute call, instance.execute(**kwargs). Any other call
// to an attribute is outside the grammar's whitelist and raises a
// syntax error before either operand is touched: "execute" is the only
// method a proxy exposes, and it is never reachable as a free function.
func (ev *Evaluator) evalCall(c *CallNode) (value, error) {
	if attr, ok := c.Func.(*AttributeNode); ok {
		if attr.Attr != "execute" {
			return value{}, ev.errf(simerr.KindSyntax, "attribute call %q is not permitted; only instance.execute is", attr.Attr)
		}
		base, err := ev.evalNode(attr.Value)
		if err != nil {
			return value{}, err
		}
		if base.instance == nil {
			return value{}, ev.errf(simerr.KindType, "execute called on a non-instance value")
		}
		if len(c.Args) > 0 {
			return value{}, ev.errf(simerr.KindSyntax, "execute takes only keyword arguments")
		}
		kwargs := make(map[string]float64, len(c.Kwargs))
		for name, sub := range c.Kwargs {
			v, err := ev.Eval(sub)
			if err != nil {
				return value{}, err
			}
			kwargs[name] = v
		}
		if err := base.instance.Execute(kwargs); err != nil {
			return value{}, ev.errf(simerr.KindEvaluation, "instance %q execute failed: %v", base.instName, err)
		}
		return scalarValue(0), nil
	}

	name, ok := c.Func.(*NameNode)
	if !ok {
		return value{}, ev.errf(simerr.KindType, "call target is not a function name")
	}
	if ev.functions == nil {
		return value{}, ev.errf(simerr.KindName, "undefined function %q", name.Name)
	}
	entry, ok := ev.functions.Function(name.Name)
	if !ok {
		return value{}, ev.errf(simerr.KindName, "undefined function %q", name.Name)
	}
	if len(c.Kwargs) > 0 {
		return value{}, ev.errf(simerr.KindSyntax, "function %q does not accept keyword arguments", name.Name)
	}
	args := make([]float64, len(c.Args))
	for i, a := range c.Args {
		v, err := ev.Eval(a)
		if err != nil {
			return value{}, err
		}
		args[i] = v
	}
	result, err := entry.Fn(args)
	if err != nil {
		return value{}, ev.errf(simerr.KindEvaluation, "function %q: %v", name.Name, err)
	}
	return scalarValue(result), nil
}
