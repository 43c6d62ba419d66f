package filter

import (
	"reflect"
	"testing"
)

func TestToStringSet(t *testing.T) {
	if got := ToStringSet(nil); got != nil {
		t.Errorf("ToStringSet(nil) = %v, want nil", got)
	}
	set := ToStringSet([]string{"a", "b", "a"})
	if len(set) != 2 {
		t.Errorf("len = %d, want 2", len(set))
	}
}

func TestWithout(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		drop []string
		want []string
	}{
		{"nil drop", []string{"a", "b"}, nil, []string{"a", "b"}},
		{"drop middle", []string{"a", "b", "c"}, []string{"b"}, []string{"a", "c"}},
		{"drop all", []string{"a"}, []string{"a"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Without(tt.in, ToStringSet(tt.drop))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Without = %v, want %v", got, tt.want)
			}
		})
	}
}
