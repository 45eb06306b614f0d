package remux

import (
	"slices"
	"testing"
)

func TestSortNatural(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "numeric",
			in:   []string{"10.ts", "2.ts", "1.ts", "100.ts", "20.ts"},
			want: []string{"1.ts", "2.ts", "10.ts", "20.ts", "100.ts"},
		},
		{
			name: "leading zeros keep lexical order",
			in:   []string{"11.a", "10.a", "9.a", "02.a", "1.a", "01.a"},
			want: []string{"01.a", "1.a", "02.a", "9.a", "10.a", "11.a"},
		},
		{
			name: "prefixed",
			in:   []string{"seg-10.ts", "seg-9.ts", "seg-1.ts"},
			want: []string{"seg-1.ts", "seg-9.ts", "seg-10.ts"},
		},
		{
			name: "several numbers",
			in:   []string{"v2_s10.ts", "v2_s2.ts", "v1_s30.ts"},
			want: []string{"v1_s30.ts", "v2_s2.ts", "v2_s10.ts"},
		},
		{
			name: "numbers before text",
			in:   []string{"a.ts", "1.ts"},
			want: []string{"1.ts", "a.ts"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := slices.Clone(tt.in)
			SortNatural(got)
			if !slices.Equal(got, tt.want) {
				t.Errorf("SortNatural() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNaturalLess(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"2.ts", "10.ts", true},
		{"10.ts", "2.ts", false},
		{"1.ts", "1.ts", false},
		{"1.ts", "1.ts.part", true},
		{"99999999999999999999.ts", "100000000000000000000.ts", true},
	}

	for _, tt := range tests {
		if got := NaturalLess(tt.a, tt.b); got != tt.want {
			t.Errorf("NaturalLess(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
