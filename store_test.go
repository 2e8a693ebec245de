package cotacao

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "cotacoes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreSaveAndLastRate(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	pair := CurrencyPair{From: "USD", To: "BRL"}

	require.NoError(t, store.SaveRates(ctx, &Report{
		RequestedDate: testDay,
		Rates: []ExchangeRate{
			{Pair: pair, Rate: 5.10, Date: testDay.AddDate(0, 0, -1), Status: StatusDateMismatch},
		},
	}))
	require.NoError(t, store.SaveRates(ctx, &Report{
		RequestedDate: testDay,
		Rates: []ExchangeRate{
			{Pair: pair, Rate: 5.12, Date: testDay, Status: StatusOK, Detail: "form"},
		},
	}))

	rate, ok, err := store.LastRate(ctx, pair)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5.12, rate.Rate)
	assert.Equal(t, StatusOK, rate.Status)
	assert.Equal(t, "form", rate.Detail)
	assert.True(t, rate.Date.Equal(testDay))
}

func TestStoreLastRateIgnoresMisses(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	pair := CurrencyPair{From: "XAU", To: "BRL"}

	require.NoError(t, store.SaveRates(ctx, &Report{
		RequestedDate: testDay,
		Rates: []ExchangeRate{
			{Pair: pair, Date: testDay, Status: StatusNotFound},
		},
	}))

	_, ok, err := store.LastRate(ctx, pair)
	require.NoError(t, err)
	assert.False(t, ok, "a zero-rate record is not a usable last rate")
}

func TestStoreUnknownPair(t *testing.T) {
	store := openTestStore(t)

	_, ok, err := store.LastRate(context.Background(), CurrencyPair{From: "EUR", To: "BRL"})
	require.NoError(t, err)
	assert.False(t, ok)
}
