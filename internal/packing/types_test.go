package packing

import (
	"encoding/json"
	"testing"
)

func TestDecisionJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		decision Decision
		want     string
	}{
		{name: "NoFit", decision: NoFit, want: "false"},
		{name: "NumericID", decision: FitsIn("12"), want: "12"},
		{name: "LeadingZeroStaysString", decision: FitsIn("012"), want: `"012"`},
		{name: "OpaqueID", decision: FitsIn("box-a"), want: `"box-a"`},
		{name: "IDBeyondFloatPrecision", decision: FitsIn("9007199254740993"), want: "9007199254740993"},
		{name: "IDBeyondInt64", decision: FitsIn("92233720368547758080"), want: `"92233720368547758080"`},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			data, err := json.Marshal(tc.decision)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(data) != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, data)
			}

			var back Decision
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if back != tc.decision {
				t.Fatalf("expected %v after decode, got %v", tc.decision, back)
			}
		})
	}
}

func TestDecisionUnmarshalRejectsTrue(t *testing.T) {
	t.Parallel()

	var d Decision
	if err := json.Unmarshal([]byte("true"), &d); err == nil {
		t.Fatalf("expected error for literal true")
	}
}
