package dto

import (
	"encoding/json"
	"testing"

	"github.com/olyamironova/limitbook/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, body string) (Order, error) {
	t.Helper()
	var req SubmitOrderRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return req.Parse()
}

func TestParse(t *testing.T) {
	o, err := parse(t, `{"side":"Buy","type":"LIMIT","qty":10,"price":101.25}`)
	require.NoError(t, err)
	assert.Equal(t, domain.Buy, o.Side)
	assert.Equal(t, domain.Limit, o.Type)
	assert.Equal(t, int64(10), o.Quantity)
	assert.True(t, o.Price.Equal(decimal.RequireFromString("101.25")))

	o, err = parse(t, `{"side":"sell","type":"market","qty":3,"price":999}`)
	require.NoError(t, err)
	assert.Equal(t, domain.Market, o.Type)
	assert.True(t, o.Price.IsZero(), "market orders carry no price")

	// range checks belong to the book
	o, err = parse(t, `{"side":"sell","type":"market","qty":-3}`)
	require.NoError(t, err)
	assert.Equal(t, int64(-3), o.Quantity)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		body string
		want error
	}{
		{`{"type":"limit","qty":1,"price":1}`, ErrMissingFields},
		{`{"side":"buy","qty":1,"price":1}`, ErrMissingFields},
		{`{"side":"buy","type":"limit","price":1}`, ErrMissingFields},
		{`{"side":"buy","type":"limit","qty":1}`, ErrMissingPrice},
		{`{"side":"up","type":"limit","qty":1,"price":1}`, domain.ErrInvalidInput},
		{`{"side":"buy","type":"ioc","qty":1,"price":1}`, domain.ErrInvalidInput},
		{`{"side":"buy","type":"limit","qty":1,"price":100000000000000000000000000000000000}`, ErrLongPrice},
	}
	for _, tc := range cases {
		_, err := parse(t, tc.body)
		require.Error(t, err, tc.body)
		assert.ErrorIs(t, err, tc.want, tc.body)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, tc.body)
	}

	_, err := parse(t, `{"side":"buy","type":"limit","qty":1}`)
	assert.Equal(t, "missing price for limit order", err.Error())
}

func TestNewSubmitOrderResponse(t *testing.T) {
	res := domain.ExecutionResult{OrderID: "x", Requested: 7, Notional: decimal.Zero}
	out, err := json.Marshal(NewSubmitOrderResponse(res))
	require.NoError(t, err)
	assert.NotContains(t, string(out), "avg_price")

	res.Record("m1", decimal.NewFromInt(100), 5)
	res.Record("m2", decimal.NewFromInt(101), 2)
	out, err = json.Marshal(NewSubmitOrderResponse(res))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","order_id":"x","filled":7,"requested":7,"resting":0,
		"trades":2,"avg_price":100.28571429,"latency_ns":0}`, string(out))
}

func TestNewBookResponse(t *testing.T) {
	out, err := json.Marshal(NewBookResponse(domain.BookSnapshot{}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"bids":[],"asks":[]}`, string(out))

	snap := domain.BookSnapshot{
		Bids: []domain.BookLevel{{Price: decimal.RequireFromString("99.50"), Quantity: 3}},
	}
	out, err = json.Marshal(NewBookResponse(snap))
	require.NoError(t, err)
	assert.JSONEq(t, `{"bids":[{"price":99.5,"qty":3}],"asks":[]}`, string(out))

	snap.Seq = 42
	out, err = json.Marshal(NewBookResponse(snap))
	require.NoError(t, err)
	assert.JSONEq(t, `{"seq":42,"bids":[{"price":99.5,"qty":3}],"asks":[]}`, string(out))
}
