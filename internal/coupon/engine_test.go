package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedCoupon() *Coupon {
	return &Coupon{
		ID:                  "c1",
		Code:                "TEST1",
		Type:                TypeFixed,
		ValueCents:          500,
		Active:              true,
		MinOrderAmountCents: 2000,
	}
}

func TestEvaluateFixed(t *testing.T) {
	now := time.Now().UTC()

	app := Evaluate(fixedCoupon(), now, 2000, nil)
	assert.True(t, app.Valid)
	assert.Equal(t, 500, app.DiscountCents)

	app = Evaluate(fixedCoupon(), now, 1999, nil)
	assert.False(t, app.Valid)
	assert.Equal(t, ReasonMinOrder, app.Reason)
}

func TestEvaluatePercentageFloors(t *testing.T) {
	now := time.Now().UTC()
	c := &Coupon{Code: "PCT15", Type: TypePercentage, ValueCents: 15, Active: true}

	app := Evaluate(c, now, 999, nil)
	require.True(t, app.Valid)
	assert.Equal(t, 149, app.DiscountCents, "integer division floors")
}

func TestEvaluateDiscountCappedAtTotal(t *testing.T) {
	now := time.Now().UTC()
	c := &Coupon{Code: "BIG", Type: TypeFixed, ValueCents: 5000, Active: true}

	app := Evaluate(c, now, 1200, nil)
	require.True(t, app.Valid)
	assert.Equal(t, 1200, app.DiscountCents)
}

func TestEvaluateFreeShipping(t *testing.T) {
	now := time.Now().UTC()
	c := &Coupon{Code: "SHIP", Type: TypeFreeShipping, ValueCents: 0, Active: true}

	app := Evaluate(c, now, 3000, nil)
	require.True(t, app.Valid)
	assert.Equal(t, 0, app.DiscountCents)
}

func TestEvaluateOrderedChecks(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name   string
		mut    func(*Coupon)
		reason Reason
	}{
		{"inactive", func(c *Coupon) { c.Active = false }, ReasonInactive},
		{"not started", func(c *Coupon) { c.ValidFrom = &future }, ReasonNotStarted},
		{"expired", func(c *Coupon) { c.ValidTo = &past }, ReasonExpired},
		{"max uses", func(c *Coupon) { c.MaxUses = 3; c.UsedCount = 3 }, ReasonMaxUses},
		{"category mismatch", func(c *Coupon) { c.CategorySlugs = []string{"books"} }, ReasonCategoryMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &Coupon{Code: "X", Type: TypeFixed, ValueCents: 100, Active: true}
			tc.mut(c)
			app := Evaluate(c, now, 10000, []string{"electronics"})
			assert.False(t, app.Valid)
			assert.Equal(t, tc.reason, app.Reason)
		})
	}
}

// inactive wins even when the window is also wrong: checks run in order and
// the first failure is the one reported.
func TestEvaluateFirstFailureWins(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	c := &Coupon{Code: "X", Type: TypeFixed, ValueCents: 100, Active: false, ValidTo: &past}

	app := Evaluate(c, now, 100, nil)
	assert.Equal(t, ReasonInactive, app.Reason)
}

func TestEvaluateCategoryRestriction(t *testing.T) {
	now := time.Now().UTC()
	c := &Coupon{Code: "X", Type: TypeFixed, ValueCents: 100, Active: true, CategorySlugs: []string{"books", "music"}}

	app := Evaluate(c, now, 1000, []string{"music"})
	assert.True(t, app.Valid, "any overlap qualifies")

	app = Evaluate(c, now, 1000, nil)
	assert.Equal(t, ReasonCategoryMismatch, app.Reason, "no candidate categories")
}

func TestEvaluateUnlimitedUses(t *testing.T) {
	now := time.Now().UTC()
	c := &Coupon{Code: "X", Type: TypeFixed, ValueCents: 100, Active: true, MaxUses: 0, UsedCount: 100000}

	app := Evaluate(c, now, 1000, nil)
	assert.True(t, app.Valid, "zero max uses means unlimited")
}

type memStore struct {
	byCode map[string]*Coupon
	used   map[string]int
}

func (s *memStore) FindByCode(_ context.Context, code string) (*Coupon, error) {
	c, ok := s.byCode[code]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *memStore) IncrementUse(_ context.Context, id string) error {
	s.used[id]++
	return nil
}

func TestEngineValidate(t *testing.T) {
	ctx := context.Background()
	e := &Engine{Store: &memStore{
		byCode: map[string]*Coupon{"TEST1": fixedCoupon()},
		used:   map[string]int{},
	}}

	app, err := e.Validate(ctx, "TEST1", 2500, nil)
	require.NoError(t, err)
	assert.True(t, app.Valid)
	assert.Equal(t, 500, app.DiscountCents)

	app, err = e.Validate(ctx, "NOPE", 2500, nil)
	require.NoError(t, err)
	assert.False(t, app.Valid)
	assert.Equal(t, ReasonNotFound, app.Reason)
}

func TestEngineMarkUsed(t *testing.T) {
	ctx := context.Background()
	store := &memStore{byCode: map[string]*Coupon{}, used: map[string]int{}}
	e := &Engine{Store: store}

	require.NoError(t, e.MarkUsed(ctx, "c1"))
	require.NoError(t, e.MarkUsed(ctx, "c1"))
	assert.Equal(t, 2, store.used["c1"])
}
