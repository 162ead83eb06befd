package inventory

import (
	"slices"
	"testing"
)

func TestSegment(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "indexed lines stay whole",
			in:   "1，三黄鸡36斤，切块\n2、豆腐2块,葱1根\n3：排骨1斤，切段",
			want: []string{"1，三黄鸡36斤，切块", "2、豆腐2块,葱1根", "3：排骨1斤，切段"},
		},
		{
			name: "plain lines split on commas and stops",
			in:   "黑脚鸡1只，鸭2只,鹅1只。白菜3斤.萝卜2个",
			want: []string{"黑脚鸡1只", "鸭2只", "鹅1只", "白菜3斤", "萝卜2个"},
		},
		{
			name: "blank lines and segments dropped",
			in:   "\r\n  \n黑脚鸡1只，，  ，\n\n",
			want: []string{"黑脚鸡1只"},
		},
		{
			name: "index needs a separator",
			in:   "12只鸡,3只鸭",
			want: []string{"12只鸡", "3只鸭"},
		},
		{
			name: "empty",
			in:   "",
			want: nil,
		},
	}
	for _, tc := range cases {
		got := slices.Collect(Segment(tc.in))
		if !slices.Equal(got, tc.want) {
			t.Fatalf("%s: want=%q got=%q", tc.name, tc.want, got)
		}
	}
}

func TestSegment_StopsEarly(t *testing.T) {
	t.Parallel()

	var got []string
	for c := range Segment("a,b,c\nd") {
		got = append(got, c)
		if len(got) == 2 {
			break
		}
	}
	if !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("unexpected candidates %q", got)
	}
}
