package expr

// RewriteInstanceNames rewrites every bare reference to a name in
// instanceNames that appears outside an attribute-access or call-target
// position into an AttributeNode selecting "out": `sensor[-30]` means
// "the canonical output of sensor, 30 cycles ago", so bare `sensor`
// becomes `sensor.out`.
//
// The rewrite must not touch a Name node that is:
//   - the Value of an AttributeNode (already spelling out an attribute),
//   - the Func of a CallNode (a callable, not a value),
//   - the Target of an AssignNode (an assignment target, not a read).
//
// It mutates the tree in place and returns the (possibly replaced) root,
// since the root itself may be a bare instance name.
func RewriteInstanceNames(n Node, instanceNames map[string]struct{}) Node {
	return rewrite(n, instanceNames, false)
}

// protected is true when n occupies one of the three positions the
// rewrite must not touch.
func rewrite(n Node, instanceNames map[string]struct{}, protected bool) Node {
	switch v := n.(type) {
	case *NameNode:
		if !protected {
			if _, ok := instanceNames[v.Name]; ok {
				return &AttributeNode{Value: v, Attr: "out"}
			}
		}
		return v
	case *NumberNode:
		return v
	case *UnaryNode:
		v.X = rewrite(v.X, instanceNames, false)
		return v
	case *BinaryNode:
		v.X = rewrite(v.X, instanceNames, false)
		v.Y = rewrite(v.Y, instanceNames, false)
		return v
	case *AttributeNode:
		// Value is in protected position: a bare instance name here is
		// already an explicit attribute access, not a read of `out`.
		v.Value = rewrite(v.Value, instanceNames, true)
		return v
	case *SubscriptNode:
		v.Value = rewrite(v.Value, instanceNames, false)
		return v
	case *CallNode:
		v.Func = rewrite(v.Func, instanceNames, true)
		for i, a := range v.Args {
			v.Args[i] = rewrite(a, instanceNames, false)
		}
		for k, a := range v.Kwargs {
			v.Kwargs[k] = rewrite(a, instanceNames, false)
		}
		return v
	case *AssignNode:
		// Target is a bare string, never a Name node, so there is
		// nothing to protect explicitly; only the RHS can reference
		// instances.
		v.Value = rewrite(v.Value, instanceNames, false)
		return v
	default:
		return n
	}
}
