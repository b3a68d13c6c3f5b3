package jupiter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-signal-trader/internal/httpclient"
)

const bonk = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Endpoints{
		Tokens:    server.URL,
		TokenList: server.URL + "/all",
		Price:     server.URL + "/price/v2",
		Quote:     server.URL + "/v6",
		Limit:     server.URL + "/limit/v1",
	}, httpclient.WithRetryDelay(time.Millisecond))
}

func TestClient_Token(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token/"+bonk, r.URL.Path)
		w.Write([]byte(`{"address":"` + bonk + `","name":"Bonk","symbol":"Bonk","decimals":5,"daily_volume":1234567.89}`))
	})

	token, err := c.Token(context.Background(), bonk)
	require.NoError(t, err)

	assert.Equal(t, "Bonk", token.Symbol)
	require.NotNil(t, token.Decimals)
	assert.Equal(t, 5, *token.Decimals)
	require.NotNil(t, token.DailyVolume)
	assert.Equal(t, "1234567.89", token.DailyVolume.String())
}

func TestClient_TokenNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := c.Token(context.Background(), bonk)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestClient_TokenList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/all", r.URL.Path)
		w.Write([]byte(`[{"address":"a1","symbol":"AAA","name":"A","decimals":6},{"address":"b1","symbol":"BBB","name":"B","decimals":9}]`))
	})

	tokens, err := c.TokenList(context.Background())
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "BBB", tokens[1].Symbol)
}

func TestClient_Price(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/price/v2", r.URL.Path)
		assert.Equal(t, bonk+",missing", r.URL.Query().Get("ids"))
		assert.Equal(t, "true", r.URL.Query().Get("showExtraInfo"))
		w.Write([]byte(`{"data":{"` + bonk + `":{"id":"` + bonk + `","type":"derivedPrice","price":"0.0000251234"},"missing":null},"timeTaken":0.003}`))
	})

	prices, err := c.Prices(context.Background(), bonk, "missing")
	require.NoError(t, err)

	require.Contains(t, prices, bonk)
	assert.Equal(t, "0.0000251234", prices[bonk].Price.String())
	assert.NotContains(t, prices, "missing")
}

func TestClient_PriceMissing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"x":null}}`))
	})

	_, err := c.Price(context.Background(), "x")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestClient_QuoteAndSwap(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v6/quote":
			q := r.URL.Query()
			assert.Equal(t, "So11111111111111111111111111111111111111112", q.Get("inputMint"))
			assert.Equal(t, bonk, q.Get("outputMint"))
			assert.Equal(t, "18750000000", q.Get("amount"))
			assert.Equal(t, "300", q.Get("slippageBps"))
			assert.Equal(t, "ExactOut", q.Get("swapMode"))
			w.Write([]byte(`{"inAmount":"50000000","outAmount":"18750000000","priceImpactPct":"0.01","routePlan":[]}`))
		case "/v6/swap":
			var body map[string]json.RawMessage
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.JSONEq(t, `"Wallet111"`, string(body["userPublicKey"]))
			assert.JSONEq(t, `true`, string(body["wrapAndUnwrapSol"]))
			assert.JSONEq(t, `{"inAmount":"50000000","outAmount":"18750000000","priceImpactPct":"0.01","routePlan":[]}`, string(body["quoteResponse"]))
			assert.JSONEq(t, `5000`, string(body["prioritizationFeeLamports"]))
			w.Write([]byte(`{"swapTransaction":"AQID","lastValidBlockHeight":1}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	quote, err := c.Quote(context.Background(), QuoteRequest{
		InputMint:   "So11111111111111111111111111111111111111112",
		OutputMint:  bonk,
		Amount:      18750000000,
		SlippageBps: 300,
		SwapMode:    ExactOut,
	})
	require.NoError(t, err)
	assert.Equal(t, "50000000", quote.InAmount)

	tx, err := c.SwapTransaction(context.Background(), SwapRequest{
		Quote:                     quote,
		UserPublicKey:             "Wallet111",
		PrioritizationFeeLamports: 5000,
	})
	require.NoError(t, err)
	assert.Equal(t, "AQID", tx)
}

func TestClient_QuoteError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"Could not find any route"}`))
	})

	_, err := c.Quote(context.Background(), QuoteRequest{InputMint: "a", OutputMint: "b", Amount: 1})
	assert.ErrorContains(t, err, "Could not find any route")
}

func TestClient_CreateLimitOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/limit/v1/createOrder", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Owner", body["owner"])
		assert.Equal(t, "Base", body["base"])
		assert.Equal(t, "14062500000", body["inAmount"])
		assert.Equal(t, "56250000", body["outAmount"])
		assert.Nil(t, body["expiredAt"])
		w.Write([]byte(`{"tx":"AQID","orderPubkey":"Order1"}`))
	})

	order, err := c.CreateLimitOrder(context.Background(), LimitOrderRequest{
		Owner:      "Owner",
		Base:       "Base",
		InputMint:  bonk,
		OutputMint: "So11111111111111111111111111111111111111112",
		InAmount:   14062500000,
		OutAmount:  56250000,
	})
	require.NoError(t, err)
	assert.Equal(t, "Order1", order.OrderPubkey)
	assert.Equal(t, "AQID", order.Tx)
}
