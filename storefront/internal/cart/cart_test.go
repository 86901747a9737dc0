package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tee(size string) CartItem {
	return CartItem{
		ID:        "p1",
		ProductID: "p1",
		Title:     "Tee",
		Price:     decimal.RequireFromString("29.99"),
		Size:      size,
	}
}

func TestReduce_AddItem_SamePairIncrements(t *testing.T) {
	s := InitialState()
	for i := 0; i < 4; i++ {
		s = Reduce(s, AddItem{Item: tee("M")})
	}
	require.Len(t, s.Items, 1)
	assert.Equal(t, 4, s.Items[0].Quantity)
}

func TestReduce_AddItem_IgnoresPayloadQuantity(t *testing.T) {
	item := tee("M")
	item.Quantity = 7
	s := Reduce(InitialState(), AddItem{Item: item})
	require.Len(t, s.Items, 1)
	assert.Equal(t, 1, s.Items[0].Quantity)

	s = Reduce(s, AddItem{Item: item})
	assert.Equal(t, 2, s.Items[0].Quantity)
}

func TestReduce_AddItem_DifferentSizesAreSeparateLines(t *testing.T) {
	s := Reduce(InitialState(), AddItem{Item: tee("M")})
	s = Reduce(s, AddItem{Item: tee("L")})
	s = Reduce(s, AddItem{Item: tee("M")})

	require.Len(t, s.Items, 2)
	assert.Equal(t, "M", s.Items[0].Size)
	assert.Equal(t, 2, s.Items[0].Quantity)
	assert.Equal(t, "L", s.Items[1].Size)
	assert.Equal(t, 1, s.Items[1].Quantity)
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	before := Reduce(InitialState(), AddItem{Item: tee("M")})
	after := Reduce(before, AddItem{Item: tee("M")})
	assert.Equal(t, 1, before.Items[0].Quantity)
	assert.Equal(t, 2, after.Items[0].Quantity)
}

func TestReduce_RemoveItem(t *testing.T) {
	s := Reduce(InitialState(), AddItem{Item: tee("M")})
	s = Reduce(s, AddItem{Item: tee("L")})

	s = Reduce(s, RemoveItem{ID: "p1", Size: "M"})
	require.Len(t, s.Items, 1)
	assert.Equal(t, "L", s.Items[0].Size)
}

func TestReduce_RemoveItem_AbsentIsNoop(t *testing.T) {
	s := Reduce(InitialState(), AddItem{Item: tee("M")})
	after := Reduce(s, RemoveItem{ID: "p1", Size: "XL"})
	assert.Equal(t, s, after)

	after = Reduce(s, RemoveItem{ID: "nope"})
	assert.Equal(t, s, after)
}

func TestReduce_UpdateQuantity(t *testing.T) {
	s := Reduce(InitialState(), AddItem{Item: tee("M")})
	s = Reduce(s, UpdateQuantity{ID: "p1", Size: "M", Quantity: 5})
	assert.Equal(t, 5, s.Items[0].Quantity)
}

func TestReduce_UpdateQuantity_NonPositiveRemoves(t *testing.T) {
	for _, q := range []int{0, -3} {
		s := Reduce(InitialState(), AddItem{Item: tee("M")})
		s = Reduce(s, UpdateQuantity{ID: "p1", Size: "M", Quantity: q})
		assert.Empty(t, s.Items)
	}
}

func TestReduce_UpdateQuantity_AbsentIsNoop(t *testing.T) {
	s := Reduce(InitialState(), AddItem{Item: tee("M")})
	after := Reduce(s, UpdateQuantity{ID: "p2", Quantity: 3})
	assert.Equal(t, s, after)
}

func TestReduce_ClearCart(t *testing.T) {
	s := Reduce(InitialState(), AddItem{Item: tee("M")})
	s = Reduce(s, ToggleCart{})
	s = Reduce(s, ClearCart{})
	assert.Equal(t, State{Items: []CartItem{}, IsOpen: false}, s)

	assert.Equal(t, InitialState(), Reduce(InitialState(), ClearCart{}))
}

func TestReduce_ToggleCart(t *testing.T) {
	s := Reduce(InitialState(), ToggleCart{})
	assert.True(t, s.IsOpen)
	s = Reduce(s, ToggleCart{})
	assert.False(t, s.IsOpen)
}

func TestState_SubtotalAndCount(t *testing.T) {
	s := State{Items: []CartItem{
		{ID: "a", Price: decimal.RequireFromString("10.00"), Quantity: 2},
		{ID: "b", Price: decimal.RequireFromString("5.50"), Quantity: 1},
	}}
	assert.True(t, decimal.RequireFromString("25.50").Equal(s.Subtotal()))
	assert.Equal(t, 3, s.Count())
}

func TestState_Fingerprint(t *testing.T) {
	s := Reduce(InitialState(), AddItem{Item: tee("M")})

	toggled := Reduce(s, ToggleCart{})
	assert.Equal(t, s.Fingerprint(), toggled.Fingerprint())

	more := Reduce(s, AddItem{Item: tee("M")})
	assert.NotEqual(t, s.Fingerprint(), more.Fingerprint())

	other := Reduce(s, AddItem{Item: tee("L")})
	assert.NotEqual(t, s.Fingerprint(), other.Fingerprint())

	repriced := s.clone()
	repriced.Items[0].Price = decimal.RequireFromString("19.99")
	assert.NotEqual(t, s.Fingerprint(), repriced.Fingerprint())
}

func TestState_Find(t *testing.T) {
	s := Reduce(InitialState(), AddItem{Item: tee("M")})

	item, ok := s.Find("p1", "M")
	require.True(t, ok)
	assert.Equal(t, 1, item.Quantity)

	_, ok = s.Find("p1", "L")
	assert.False(t, ok)
}
