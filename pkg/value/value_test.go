package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrNumClassification(t *testing.T) {
	cases := []struct {
		in         string
		wantNumStr bool
	}{
		{"42", true},
		{"  3.5  ", true},
		{"-1e3", true},
		{"abc", false},
		{"", false},
		{"3abc", false},
	}
	for _, c := range cases {
		v := StrNum(c.in)
		assert.Equalf(t, c.wantNumStr, v.IsNumericString(), "StrNum(%q).IsNumericString()", c.in)
	}
}

func TestCompareNumericStringVsString(t *testing.T) {
	a, b := StrNum("10"), StrNum("9")
	assert.Greater(t, Compare(a, b, "%.6g"), 0, "numeric-string 10 should compare greater than 9")

	s, u := NewStr("10"), NewStr("9")
	assert.Less(t, Compare(s, u, "%.6g"), 0, "plain strings should compare lexicographically (10 < 9)")
}

func TestToStringUsesConvfmtForFractional(t *testing.T) {
	v := Num(3.14159265)
	assert.Equal(t, "3.14", v.ToString("%.2f"))
}

func TestToStringIntegerHasNoDecimal(t *testing.T) {
	assert.Equal(t, "42", Num(42).ToString("%.6g"))
}

func TestUninitializedValue(t *testing.T) {
	require.True(t, Uninitialized.IsUninit())
	assert.Equal(t, float64(0), Uninitialized.ToNumber())
	assert.Equal(t, "", Uninitialized.ToString("%.6g"))
}

func TestArraySetGetDelete(t *testing.T) {
	a := NewArrayContainer()
	a.Set("x", Num(1))
	a.Set("y", Num(2))

	got, ok := a.Get("x")
	require.True(t, ok)
	assert.Equal(t, float64(1), got.ToNumber())

	a.Delete("x")
	_, ok = a.Get("x")
	assert.False(t, ok, "expected x to be deleted")
	assert.Equal(t, 1, a.Len())
}
