package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeltaFor(t *testing.T) {
	cases := []struct {
		kind EventKind
		qty  int
		want int
	}{
		{KindSale, 3, -3},
		{KindSale, -3, -3},
		{KindReserve, 2, -2},
		{KindReturn, 4, 4},
		{KindReturn, -4, 4},
		{KindRelease, 1, 1},
		{KindAdjust, 7, 7},
		{KindAdjust, -7, -7},
		{KindAdjust, 0, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, DeltaFor(c.kind, c.qty), "kind=%s qty=%d", c.kind, c.qty)
	}
}

func TestEventKindValid(t *testing.T) {
	for _, k := range []EventKind{KindAdjust, KindSale, KindReturn, KindReserve, KindRelease} {
		assert.True(t, k.Valid(), "%s", k)
	}
	assert.False(t, EventKind("RESTOCK").Valid())
	assert.False(t, EventKind("").Valid())
}
