package store

import (
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartKey(t *testing.T) {
	id := uuid.MustParse("6f1c7a52-2f1b-4a4e-9d55-0c8e3b1f2a10")
	assert.Equal(t, "cart_6f1c7a52-2f1b-4a4e-9d55-0c8e3b1f2a10", CartKey(id))
}

func TestUsersCodec(t *testing.T) {
	users := []domain.User{
		{ID: uuid.New(), Email: "a@x.com", Secret: "p1"},
		{ID: uuid.New(), Email: "b@x.com", Secret: "p2"},
	}

	data, err := EncodeUsers(users)
	require.NoError(t, err)

	got, err := DecodeUsers(data)
	require.NoError(t, err)
	assert.Equal(t, users, got)

	empty, err := EncodeUsers(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(empty))
}

func TestDecodeUsersReadsLegacyRecords(t *testing.T) {
	legacy := `[
		{"userId":"6f1c7a52-2f1b-4a4e-9d55-0c8e3b1f2a10","email":"a@x.com","password":"p1"},
		{"userId":"0b9f3a51-5b9e-4a36-8d7e-0d2d6f3c9e21","email":"a@x.com","password":"p2"},
		{"userId":"","email":"c@x.com","password":"p3"}
	]`

	got, err := DecodeUsers([]byte(legacy))
	require.NoError(t, err)
	require.Len(t, got, 1, "duplicate email and invalid id are dropped")
	assert.Equal(t, "a@x.com", got[0].Email)
	assert.Equal(t, "p1", got[0].Secret)
}

func TestDecodeCorruptValues(t *testing.T) {
	users, err := DecodeUsers([]byte("{not json"))
	assert.ErrorIs(t, err, ErrCorruptValue)
	assert.NotNil(t, users)
	assert.Empty(t, users)

	user, err := DecodeUser([]byte(`"nope"`))
	assert.ErrorIs(t, err, ErrCorruptValue)
	assert.Equal(t, domain.User{}, user)

	_, err = DecodeUser([]byte(`{"email":"a@x.com"}`))
	assert.ErrorIs(t, err, ErrCorruptValue, "incomplete record is corrupt")

	items, err := DecodeCartItems([]byte("[{"))
	assert.ErrorIs(t, err, ErrCorruptValue)
	assert.Empty(t, items)
}

func TestCartItemsCodec(t *testing.T) {
	items := []domain.CartItem{
		{
			ProductID: 1,
			Title:     "T",
			UnitPrice: decimal.RequireFromString("10.25"),
			Quantity:  2,
			ImageRefs: []string{"https://cdn.example.com/1.png"},
		},
	}

	data, err := EncodeCartItems(items)
	require.NoError(t, err)

	got, err := DecodeCartItems(data)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, items[0].ProductID, got[0].ProductID)
	assert.Equal(t, items[0].ImageRefs, got[0].ImageRefs)
	assert.True(t, items[0].UnitPrice.Equal(got[0].UnitPrice))

	assert.JSONEq(t,
		`[{"productId":1,"title":"T","price":10.25,"quantity":2,"images":["https://cdn.example.com/1.png"]}]`,
		string(data), "prices are stored as JSON numbers")

	empty, err := EncodeCartItems(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(empty))
}

func TestDecodeCartItemsAcceptsStringPrices(t *testing.T) {
	got, err := DecodeCartItems([]byte(`[{"productId":4,"title":"Lipstick","price":"12.50","quantity":2}]`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, decimal.RequireFromString("12.5").Equal(got[0].UnitPrice))
}

func TestDecodeCartItemsAcceptsNumericPrices(t *testing.T) {
	got, err := DecodeCartItems([]byte(`[{"productId":3,"title":"Mascara","price":9.99,"quantity":1}]`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, decimal.RequireFromString("9.99").Equal(got[0].UnitPrice))

	null, err := DecodeCartItems([]byte(`null`))
	require.NoError(t, err)
	assert.NotNil(t, null)
	assert.Empty(t, null)
}

func TestDecodeCartItemsReadsLegacyLines(t *testing.T) {
	got, err := DecodeCartItems([]byte(`[{"productId":1,"name":"Shoe","price":10,"quantity":2,"image":"https://x/1.png"}]`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ProductID)
	assert.Equal(t, "Shoe", got[0].Title)
	assert.Equal(t, []string{"https://x/1.png"}, got[0].ImageRefs)
	assert.Equal(t, 2, got[0].Quantity)
	assert.True(t, decimal.NewFromInt(10).Equal(got[0].UnitPrice))

	// Re-encoding keeps what the legacy line carried.
	data, err := EncodeCartItems(got)
	require.NoError(t, err)
	assert.JSONEq(t,
		`[{"productId":1,"title":"Shoe","price":10,"quantity":2,"images":["https://x/1.png"]}]`,
		string(data))
}

func TestDecodeCartItemsPrefersCurrentFields(t *testing.T) {
	got, err := DecodeCartItems([]byte(
		`[{"productId":2,"title":"Boot","name":"Old","price":5,"quantity":1,"images":["a","b"],"image":"b"}]`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Boot", got[0].Title)
	assert.Equal(t, []string{"a", "b"}, got[0].ImageRefs)
}
