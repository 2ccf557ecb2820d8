package formula

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mapResolver(values map[string]any) Resolver {
	return func(name string) (any, bool) {
		v, ok := values[name]
		return v, ok
	}
}

func TestEvalArithmetic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		expr string
		want float64
	}{
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"10 / 4", 2.5},
		{"-3 + 5", 2},
		{"--3", 3},
		{"2 * -(1 + 1)", -4},
		{".5 + 1.5", 2},
		{"1e3 / 10", 100},
		{"8 - 2 - 1", 5},
		{"16 / 4 / 2", 2},
	}

	for _, tt := range tests {
		got, err := Eval(tt.expr, nil)
		if err != nil {
			t.Fatalf("Eval(%q) returned error: %v", tt.expr, err)
		}
		if got != tt.want {
			t.Fatalf("Eval(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestEvalReferences(t *testing.T) {
	t.Parallel()

	values := map[string]any{
		"Birth Year": 1990,
		"Price":      "12.5",
		"Quantity":   float64(2),
		"Empty":      "",
		"Unset":      nil,
		"Flag":       false,
		"qty":        int64(4),
	}

	tests := []struct {
		expr string
		want float64
	}{
		{"{Birth Year} + 10", 2000},
		{"{Price} * {Quantity}", 25},
		{"{Empty} + {Unset} + {Flag} + 1", 1},
		{"qty * 2", 8},
		{"{ Birth Year } - 1990", 0},
	}
	for _, tt := range tests {
		got, err := Eval(tt.expr, mapResolver(values))
		if err != nil {
			t.Fatalf("Eval(%q) returned error: %v", tt.expr, err)
		}
		if got != tt.want {
			t.Fatalf("Eval(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestEvalErrors(t *testing.T) {
	t.Parallel()

	values := map[string]any{"Name": "Ada", "Tags": []any{"a"}}

	cases := []string{
		"",
		"   ",
		"(1 + 2",
		"1 + 2)",
		"1 +",
		"* 2",
		"1 2",
		"{Name} + 1",
		"{Missing} + 1",
		"missing + 1",
		"{Tags} * 2",
		"{unterminated + 1",
		"{} + 1",
		"1 % 2",
		"alert(1)",
		"1.2.3",
	}
	for _, expr := range cases {
		if _, err := Eval(expr, mapResolver(values)); err == nil {
			t.Fatalf("Eval(%q) expected error", expr)
		}
	}

	if _, err := Eval("1 / (2 - 2)", nil); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}
	if _, err := Eval(" ", nil); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestCompileReferencesAndReuse(t *testing.T) {
	t.Parallel()

	prog, err := Compile("{Salary} * 12 + bonus + {Salary}")
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"Salary", "bonus"}, prog.References()); diff != "" {
		t.Fatalf("references mismatch (-want +got):\n%s", diff)
	}

	first, err := prog.Eval(mapResolver(map[string]any{"Salary": 100, "bonus": 5}))
	if err != nil || first != 1305 {
		t.Fatalf("first eval = %v, %v", first, err)
	}
	second, err := prog.Eval(mapResolver(map[string]any{"Salary": 1, "bonus": 0}))
	if err != nil || second != 13 {
		t.Fatalf("second eval = %v, %v", second, err)
	}
}
