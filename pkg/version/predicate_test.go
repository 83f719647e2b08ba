package version

import (
	"reflect"
	"testing"
)

func TestParsePredicates(t *testing.T) {
	type args struct {
		rng string
	}

	tests := []struct {
		name string
		args args
		want []Predicate
	}{
		{
			name: "range",
			args: args{rng: ">=7.0,<8.9"},
			want: []Predicate{{Operator: GTE, Value: "7.0"}, {Operator: LT, Value: "8.9"}},
		},
		{
			name: "single",
			args: args{rng: ">=2.4.0"},
			want: []Predicate{{Operator: GTE, Value: "2.4.0"}},
		},
		{
			name: "aliases",
			args: args{rng: "=>1.0, =<2.0,=3.0,==4.0"},
			want: []Predicate{
				{Operator: GTE, Value: "1.0"},
				{Operator: LTE, Value: "2.0"},
				{Operator: EQ, Value: "3.0"},
				{Operator: EQ, Value: "4.0"},
			},
		},
		{
			name: "empty",
			args: args{rng: ""},
			want: []Predicate{},
		},
		{
			name: "whitespace",
			args: args{rng: "   "},
			want: []Predicate{},
		},
		{
			name: "malformedDropped",
			args: args{rng: "latest,>=1.2,,~1.0"},
			want: []Predicate{{Operator: GTE, Value: "1.2"}},
		},
		{
			name: "unknownOperatorKept",
			args: args{rng: ">>1.0"},
			want: []Predicate{{Operator: Operator(">>"), Value: "1.0"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePredicates(tt.args.rng)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParsePredicates() got = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOperatorKnown(t *testing.T) {
	for _, op := range []Operator{GTE, LTE, GT, LT, EQ} {
		if !op.Known() {
			t.Errorf("%q should be known", op)
		}
	}

	if Operator("=>=").Known() {
		t.Errorf("=>= should not be known")
	}
}
