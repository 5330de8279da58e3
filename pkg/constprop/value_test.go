package constprop

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeetValue(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want Value
	}{
		{"undef is identity left", Undef(), ConstOf(3), ConstOf(3)},
		{"undef is identity right", ConstOf(3), Undef(), ConstOf(3)},
		{"undef with undef", Undef(), Undef(), Undef()},
		{"nac absorbs const", NAC(), ConstOf(3), NAC()},
		{"nac absorbs undef", Undef(), NAC(), NAC()},
		{"equal constants keep", ConstOf(4), ConstOf(4), ConstOf(4)},
		{"distinct constants conflict", ConstOf(4), ConstOf(5), NAC()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MeetValue(tt.a, tt.b))
			assert.Equal(t, tt.want, MeetValue(tt.b, tt.a), "meet is commutative")
		})
	}
}

func TestValuePredicates(t *testing.T) {
	assert.True(t, Undef().IsUndef())
	assert.True(t, NAC().IsNAC())

	c := ConstOf(-17)
	assert.True(t, c.IsConst())
	assert.Equal(t, int64(-17), c.Const())

	var zero Value
	assert.True(t, zero.IsUndef(), "zero value is Undef")

	assert.Equal(t, "undef", Undef().String())
	assert.Equal(t, "NAC", NAC().String())
	assert.Equal(t, "-17", c.String())
}
