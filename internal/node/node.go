// Package node implements the two program node kinds: AlgorithmNode,
// which binds a stateful instance to its driving "instance.execute(...)"
// expression, and ExpressionNode, which binds a pure variable to its
// defining expression. Both are modeled as a single sum type dispatched
// through one Step method, per the engine's node interface, rather than
// an open class hierarchy: the two kinds differ only in their per-cycle
// behavior, not in how the engine addresses or sequences them.
package node

import (
	"fmt"

	"github.com/flowlace/cyclesim/internal/expr"
	"github.com/flowlace/cyclesim/internal/registry"
	"github.com/flowlace/cyclesim/internal/simerr"
)

// Store is the subset of *store.Store a node needs to step itself.
type Store interface {
	expr.Store
	Set(name string, v float64)
}

// Node is a single program item ready to run: either an AlgorithmNode or
// an ExpressionNode. Step advances it by exactly one cycle.
type Node interface {
	// Name identifies the node for error reporting (the instance or
	// variable name from the configuration).
	Name() string
	Step(store Store) error
}

// algorithmNode binds a stateful instance to its driving call. It is
// constructed once at load time from a parsed
// "instance_name.execute(k1=expr1, ...)" call; each cycle it
// re-evaluates every keyword argument sub-expression fresh against the
// current store and persists the instance's stored attributes afterward.
type algorithmNode struct {
	instanceName     string
	instance         registry.Algorithm
	storedAttributes []string
	kwargExprs       map[string]expr.Node
	instances        map[string]registry.Algorithm
	functions        *registry.Registry
	rawExpression    string
}

// NewAlgorithmNode parses expression, verifies it is exactly
// `instanceName.execute(...)` (positional arguments are rejected: the
// instance contract only accepts keyword arguments), and extracts each
// keyword argument as an independent sub-expression to be evaluated
// fresh every cycle.
func NewAlgorithmNode(
	instanceName string,
	instance registry.Algorithm,
	storedAttributes []string,
	expression string,
	instances map[string]registry.Algorithm,
	functions *registry.Registry,
) (Node, error) {
	tree, err := expr.Parse(expression)
	if err != nil {
		return nil, err
	}
	instanceNames := make(map[string]struct{}, len(instances))
	for name := range instances {
		instanceNames[name] = struct{}{}
	}
	tree = expr.RewriteInstanceNames(tree, instanceNames)

	call, ok := tree.(*expr.CallNode)
	if !ok {
		return nil, simerr.NewExpressionError(simerr.KindSyntax, expression,
			fmt.Errorf("algorithm item expression must be %q, got a different shape", instanceName+".execute(...)"))
	}
	attr, ok := call.Func.(*expr.AttributeNode)
	if !ok || attr.Attr != "execute" {
		return nil, simerr.NewExpressionError(simerr.KindSyntax, expression,
			fmt.Errorf("algorithm item expression must call %q, not %q", instanceName+".execute", describeCallTarget(call.Func)))
	}
	name, ok := attr.Value.(*expr.NameNode)
	if !ok || name.Name != instanceName {
		return nil, simerr.NewExpressionError(simerr.KindSyntax, expression,
			fmt.Errorf("algorithm item expression must call %s.execute(...), addresses a different instance", instanceName))
	}
	if len(call.Args) > 0 {
		return nil, simerr.NewExpressionError(simerr.KindSyntax, expression,
			fmt.Errorf("%s.execute(...) accepts only keyword arguments", instanceName))
	}

	return &algorithmNode{
		instanceName:     instanceName,
		instance:         instance,
		storedAttributes: storedAttributes,
		kwargExprs:       call.Kwargs,
		instances:        instances,
		functions:        functions,
		rawExpression:    expression,
	}, nil
}

func describeCallTarget(n expr.Node) string {
	if name, ok := n.(*expr.NameNode); ok {
		return name.Name
	}
	return fmt.Sprintf("%T", n)
}

func (a *algorithmNode) Name() string { return a.instanceName }

func (a *algorithmNode) Step(st Store) error {
	ev := expr.NewEvaluator(st, a.instances, a.functions, a.rawExpression)
	kwargs := make(map[string]float64, len(a.kwargExprs))
	for name, sub := range a.kwargExprs {
		v, err := ev.Eval(sub)
		if err != nil {
			return err
		}
		kwargs[name] = v
	}
	if err := a.instance.Execute(kwargs); err != nil {
		return simerr.NewExpressionError(simerr.KindEvaluation, a.rawExpression, err)
	}
	for _, attrName := range a.storedAttributes {
		v, ok := a.instance.Attr(attrName)
		if !ok {
			return simerr.NewExpressionError(simerr.KindEvaluation, a.rawExpression,
				fmt.Errorf("instance %q has no attribute %q after execute", a.instanceName, attrName))
		}
		st.Set(a.instanceName+"."+attrName, v)
	}
	return nil
}

// expressionNode is a pure variable assigned from an expression over
// the rest of the program, re-evaluated and persisted every cycle.
type expressionNode struct {
	name          string
	tree          expr.Node // the right-hand side, after stripping any top-level assignment
	instances     map[string]registry.Algorithm
	functions     *registry.Registry
	rawExpression string
}

// NewExpressionNode parses expression. If its root is an assignment, the
// right-hand side is what gets evaluated each cycle (the left-hand side
// is already known: it is config.name); otherwise the full expression is
// used directly.
func NewExpressionNode(
	name string,
	expression string,
	instances map[string]registry.Algorithm,
	functions *registry.Registry,
) (Node, error) {
	tree, err := expr.Parse(expression)
	if err != nil {
		return nil, err
	}
	instanceNames := make(map[string]struct{}, len(instances))
	for n := range instances {
		instanceNames[n] = struct{}{}
	}
	tree = expr.RewriteInstanceNames(tree, instanceNames)

	if assign, ok := tree.(*expr.AssignNode); ok {
		tree = assign.Value
	}
	return &expressionNode{
		name:          name,
		tree:          tree,
		instances:     instances,
		functions:     functions,
		rawExpression: expression,
	}, nil
}

func (e *expressionNode) Name() string { return e.name }

func (e *expressionNode) Step(st Store) error {
	ev := expr.NewEvaluator(st, e.instances, e.functions, e.rawExpression)
	v, err := ev.Eval(e.tree)
	if err != nil {
		return err
	}
	st.Set(e.name, v)
	return nil
}
