package buttonmap_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Alia5/padmap/buttonmap"
)

func TestPrimitiveTextRoundTrip(t *testing.T) {
	tests := []struct {
		text string
		want *buttonmap.Primitive // nil for parse errors
	}{
		{"", &buttonmap.Primitive{}},
		{"button 3", ptr(buttonmap.Button(3))},
		{"hat 0 up", ptr(buttonmap.Hat(0, buttonmap.HatUp))},
		{"hat 1 left", ptr(buttonmap.Hat(1, buttonmap.HatLeft))},
		{"axis 2 +", ptr(buttonmap.SemiAxis(2, buttonmap.SemiAxisPositive))},
		{"axis 5 - center=-1 range=2", ptr(buttonmap.SemiAxisRange(5, -1, buttonmap.SemiAxisNegative, 2))},
		{"motor 1", ptr(buttonmap.Motor(1))},

		// parse errors
		{"button", nil},
		{"button x", nil},
		{"hat 0 sideways", nil},
		{"axis 1 *", nil},
		{"axis 1 + center=3 range=1", nil},
		{"axis 1 + range=2 center=0", nil},
		{"trigger 1", nil},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			var p buttonmap.Primitive
			if err := p.UnmarshalText([]byte(tt.text)); err != nil {
				if tt.want != nil {
					t.Fatalf("UnmarshalText(%q) error: %v", tt.text, err)
				}
				return
			}
			if tt.want == nil {
				t.Fatalf("UnmarshalText(%q) = %v, want error", tt.text, p)
			}

			if diff := cmp.Diff(*tt.want, p); diff != "" {
				t.Fatalf("UnmarshalText(%q) mismatch (-want +got):\n%s", tt.text, diff)
			}

			text, err := p.MarshalText()
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.text, string(text)); diff != "" {
				t.Fatalf("MarshalText mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseUnknownKeyword(t *testing.T) {
	p, err := buttonmap.ParsePrimitive("unknown")
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsUnknown() {
		t.Fatalf("ParsePrimitive(unknown) = %v", p)
	}
}

func TestSemiAxisNormalizesRange(t *testing.T) {
	if buttonmap.SemiAxisRange(1, 0, buttonmap.SemiAxisPositive, 0) != buttonmap.SemiAxis(1, buttonmap.SemiAxisPositive) {
		t.Fatal("zero range must normalize to the default semi-axis")
	}
}

func ptr[T any](v T) *T { return &v }
