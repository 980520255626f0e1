package expr

// ExtractLagRequirements walks n (after RewriteInstanceNames has run, so
// bare instance references already read `name.out`) and records, for
// every subscript of the form `Name(n)[-k]` or `Attribute(Name(i),a)[-k]`,
// the pair (store_key, k) where store_key is "n" or "i.a". When a key is
// subscripted more than once in the same expression, the maximum k wins.
//
// Forward-looking subscripts (index > 0, i.e. k < 0) are not history
// requirements and are skipped here; the evaluator rejects them at
// evaluation time.
func ExtractLagRequirements(n Node, reqs map[string]int) {
	switch v := n.(type) {
	case *SubscriptNode:
		if key, ok := subscriptStoreKey(v.Value); ok {
			k := -v.Index
			if k > reqs[key] {
				reqs[key] = k
			}
		}
		ExtractLagRequirements(v.Value, reqs)
	case *UnaryNode:
		ExtractLagRequirements(v.X, reqs)
	case *BinaryNode:
		ExtractLagRequirements(v.X, reqs)
		ExtractLagRequirements(v.Y, reqs)
	case *AttributeNode:
		ExtractLagRequirements(v.Value, reqs)
	case *CallNode:
		ExtractLagRequirements(v.Func, reqs)
		for _, a := range v.Args {
			ExtractLagRequirements(a, reqs)
		}
		for _, a := range v.Kwargs {
			ExtractLagRequirements(a, reqs)
		}
	case *AssignNode:
		ExtractLagRequirements(v.Value, reqs)
	}
}

func subscriptStoreKey(n Node) (string, bool) {
	switch v := n.(type) {
	case *NameNode:
		return v.Name, true
	case *AttributeNode:
		if name, ok := v.Value.(*NameNode); ok {
			return name.Name + "." + v.Attr, true
		}
	}
	return "", false
}
