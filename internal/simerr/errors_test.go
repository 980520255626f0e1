package simerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestExpressionErrorUnwrapAndAs(t *testing.T) {
	cause := errors.New("division by zero")
	err := NewExpressionError(KindArithmetic, "1/0", cause)

	wrapped := fmt.Errorf("cycle 3: %w", err)
	ee, ok := IsExpressionError(wrapped)
	if !ok {
		t.Fatalf("expected IsExpressionError to unwrap to *ExpressionError")
	}
	if ee.Kind != KindArithmetic {
		t.Fatalf("Kind = %v, want %v", ee.Kind, KindArithmetic)
	}
	if errors.Unwrap(err) != cause {
		t.Fatalf("expected Unwrap() to expose the original cause")
	}
}

func TestNodeErrorMessage(t *testing.T) {
	cause := NewExpressionError(KindName, "r[-3]", errors.New("undefined name r"))
	nerr := NewNodeError("d", 7, cause)
	if nerr.Unwrap() != cause {
		t.Fatalf("Unwrap() did not return the wrapped expression error")
	}
	if nerr.NodeName != "d" || nerr.Cycle != 7 {
		t.Fatalf("unexpected node error fields: %+v", nerr)
	}
}

func TestConfigurationErrorMessage(t *testing.T) {
	err := NewConfigurationError("pid1", "unknown algorithm type", nil)
	if err.Item != "pid1" {
		t.Fatalf("Item = %q, want pid1", err.Item)
	}
	if err.Error() == "" {
		t.Fatalf("Error() should not be empty")
	}
}
