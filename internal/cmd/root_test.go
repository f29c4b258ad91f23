package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cfkit/internal/auth"
	"cfkit/pkg/core"
)

const testSecret = "Y2ZraXQgZml4dHVyZSBzZWNyZXQsIG5vdCBhIHJlYWwga2V5IQ=="

type hit struct {
	path    string
	query   string
	body    string
	apiKey  string
	authent string
}

type fakeAPI struct {
	mu     sync.Mutex
	hits   []hit
	bodies map[string]string
}

func newFakeAPI(t *testing.T, bodies map[string]string) (*fakeAPI, string) {
	t.Helper()
	api := &fakeAPI{bodies: bodies}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		api.mu.Lock()
		api.hits = append(api.hits, hit{
			path:    r.URL.Path,
			query:   r.URL.RawQuery,
			body:    string(body),
			apiKey:  r.Header.Get(auth.HeaderAPIKey),
			authent: r.Header.Get(auth.HeaderAuthent),
		})
		api.mu.Unlock()

		reply, ok := api.bodies[r.URL.Path]
		if !ok {
			reply = `{"result":"error","error":"unknownEndpoint"}`
		}
		w.Write([]byte(reply))
	}))
	t.Cleanup(server.Close)
	return api, server.URL
}

func (f *fakeAPI) last(t *testing.T) hit {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.hits)
	return f.hits[len(f.hits)-1]
}

// isolate keeps the developer's environment and config files out of the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("CFKIT_API_KEY", "")
	t.Setenv("CFKIT_API_SECRET", "")
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestEndpointsCmd(t *testing.T) {
	isolate(t)

	out, _, err := run(t, "endpoints")
	require.NoError(t, err)

	assert.Contains(t, out, "SEND_ORDER")
	assert.Contains(t, out, "/api/v2/sendorder")
	assert.Contains(t, out, "/api/cumulativebidask")
}

func TestEndpointsCmd_JSON(t *testing.T) {
	isolate(t)

	out, _, err := run(t, "endpoints", "--json")
	require.NoError(t, err)

	var rows []struct {
		Name string `json:"name"`
		Path string `json:"path"`
		Auth bool   `json:"auth"`
	}
	require.NoError(t, sonic.UnmarshalString(out, &rows))
	assert.Len(t, rows, len(core.Operations()))
	assert.Equal(t, "/api/v2/instruments", rows[0].Path)
	assert.False(t, rows[0].Auth)
}

func TestTickersCmd(t *testing.T) {
	isolate(t)
	api, url := newFakeAPI(t, map[string]string{
		"/api/v2/tickers": `{"result":"success","tickers":[
			{"symbol":"fi_xbtusd_180615","last":9392.5,"bid":9391,"ask":9394},
			{"symbol":"fi_ethusd_180615","last":700,"bid":699,"ask":701}
		]}`,
	})

	out, _, err := run(t, "--base-url", url, "--min-interval", "0", "tickers", "fi_xbtusd_180615")
	require.NoError(t, err)

	assert.Contains(t, out, "fi_xbtusd_180615")
	assert.Contains(t, out, "9392.5")
	assert.NotContains(t, out, "fi_ethusd_180615")
	assert.Empty(t, api.last(t).authent)
}

func TestOrderBookCmd_Depth(t *testing.T) {
	isolate(t)
	api, url := newFakeAPI(t, map[string]string{
		"/api/v2/orderbook": `{"result":"success","orderBook":{"bids":[[9391,10],[9390,2]],"asks":[[9394,3],[9395,1]]}}`,
	})

	out, _, err := run(t, "--base-url", url, "--min-interval", "0", "orderbook", "fi_xbtusd_180615", "--depth", "1")
	require.NoError(t, err)

	assert.Contains(t, out, "9391")
	assert.NotContains(t, out, "9390")
	assert.Equal(t, "symbol=fi_xbtusd_180615", api.last(t).query)
}

func TestAccountCmd_NeedsCredentials(t *testing.T) {
	isolate(t)
	api, url := newFakeAPI(t, nil)

	_, _, err := run(t, "--base-url", url, "--min-interval", "0", "account")
	require.Error(t, err)

	assert.True(t, core.IsConfigurationError(err))
	assert.True(t, errors.Is(err, core.ErrNoCredentials))
	assert.Equal(t, ExitConfiguration, ExitCode(err))
	assert.Empty(t, api.hits)
}

func TestAccountCmd_FromEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("CFKIT_API_KEY", "public-key")
	t.Setenv("CFKIT_API_SECRET", testSecret)
	api, url := newFakeAPI(t, map[string]string{
		"/api/v2/account": `{"result":"success","account":{"balances":{"xbt":1.5},"auxiliary":{"af":2},"marginRequirements":{},"triggerEstimates":{}}}`,
	})

	out, _, err := run(t, "--base-url", url, "--min-interval", "0", "account")
	require.NoError(t, err)

	assert.Contains(t, out, "xbt")
	assert.Contains(t, out, "1.5")
	assert.NotEmpty(t, api.last(t).authent)
}

func TestServerErrorExitCode(t *testing.T) {
	isolate(t)
	_, url := newFakeAPI(t, map[string]string{
		"/api/v2/tickers": `{"result":"error","error":"boom"}`,
	})

	_, _, err := run(t, "--base-url", url, "--min-interval", "0", "tickers")
	require.Error(t, err)

	assert.True(t, core.IsDomainError(err))
	assert.Equal(t, ExitDomain, ExitCode(err))
}

func TestQueryCmd(t *testing.T) {
	isolate(t)
	api, url := newFakeAPI(t, map[string]string{
		"/api/v2/history": `{"result":"success","history":[]}`,
	})

	out, _, err := run(t, "--base-url", url, "--min-interval", "0",
		"query", "history", "--params", "symbol=fi_xbtusd_180615&lastTime=2016-01-20T00:00:00.000Z")
	require.NoError(t, err)

	assert.Contains(t, out, `"history":[]`)
	got := api.last(t)
	assert.Equal(t, "/api/v2/history", got.path)
	assert.Equal(t, "symbol=fi_xbtusd_180615&lastTime=2016-01-20T00:00:00.000Z", got.query)
	assert.Equal(t, got.query, got.body)
}

func TestSignCmd(t *testing.T) {
	isolate(t)
	t.Setenv("CFKIT_API_KEY", "public-key")
	t.Setenv("CFKIT_API_SECRET", testSecret)

	out, _, err := run(t, "sign", "/api/v2/sendorder",
		"--params", "orderType=lmt&symbol=fi_xbtusd_180615&side=buy&size=1&limitPrice=9400",
		"--nonce", "1415957147987")
	require.NoError(t, err)

	assert.Contains(t, out, "+dDNp4aRKL8kvslnKe+AbpECAYlbeE4mtBFoZk+9rwKKlZu3g9UIGr2Wo3VtpRF3X3NvI54c5M8WBdCOunvUFw==")
	assert.Contains(t, out, "1415957147987")
	assert.NotContains(t, out, testSecret)
}

func TestSignCmd_JSONMasksKey(t *testing.T) {
	isolate(t)
	t.Setenv("CFKIT_API_KEY", "public-api-key")
	t.Setenv("CFKIT_API_SECRET", testSecret)

	out, _, err := run(t, "--json", "sign", "/api/v2/sendorder",
		"--params", "orderType=lmt&symbol=fi_xbtusd_180615&side=buy&size=1&limitPrice=9400",
		"--nonce", "1415957147987")
	require.NoError(t, err)

	var got struct {
		Headers map[string]string `json:"headers"`
	}
	require.NoError(t, sonic.UnmarshalString(out, &got))
	assert.Equal(t, "publ****-key", got.Headers[auth.HeaderAPIKey])
	assert.Equal(t, "+dDNp4aRKL8kvslnKe+AbpECAYlbeE4mtBFoZk+9rwKKlZu3g9UIGr2Wo3VtpRF3X3NvI54c5M8WBdCOunvUFw==", got.Headers[auth.HeaderAuthent])
	assert.NotContains(t, out, "public-api-key")
	assert.NotContains(t, out, testSecret)
}

func TestAccountsFromConfigFile(t *testing.T) {
	isolate(t)
	cfg := filepath.Join(t.TempDir(), "cfkit.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
api_key: default-public-key
api_secret: `+testSecret+`
accounts:
  hedge:
    api_key: hedge-public-key
    api_secret: `+testSecret+`
`), 0o600))

	out, _, err := run(t, "--config", cfg, "accounts")
	require.NoError(t, err)

	assert.Contains(t, out, "default")
	assert.Contains(t, out, "hedge")
	assert.Contains(t, out, "hedg****-key")
	assert.NotContains(t, out, testSecret)
}

func TestAccountsKeyList(t *testing.T) {
	isolate(t)
	cfg := filepath.Join(t.TempDir(), "cfkit.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
accounts:
  hedge:
    api_key: hedge-public-key
    api_secret: `+testSecret+`
    rotation: round_robin
    keys:
      - api_key: hedge-second-key
        api_secret: `+testSecret+`
`), 0o600))

	out, _, err := run(t, "--config", cfg, "--json", "accounts")
	require.NoError(t, err)

	var rows []struct {
		Name     string `json:"name"`
		Key      string `json:"key"`
		Rotation string `json:"rotation"`
	}
	require.NoError(t, sonic.UnmarshalString(out, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "hedg****-key", rows[0].Key)
	assert.Equal(t, "hedg****-key", rows[1].Key)
	assert.Equal(t, "round_robin", rows[1].Rotation)
	assert.NotContains(t, out, "hedge-second-key")
	assert.NotContains(t, out, testSecret)
}

func TestKeysOnlyAccountSigns(t *testing.T) {
	isolate(t)
	api, url := newFakeAPI(t, map[string]string{
		"/api/v2/account": `{"result":"success","account":{"balances":{"xbt":1}}}`,
	})
	cfg := filepath.Join(t.TempDir(), "cfkit.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
accounts:
  hedge:
    keys:
      - api_key: hedge-first-key
        api_secret: `+testSecret+`
      - api_key: hedge-second-key
        api_secret: `+testSecret+`
`), 0o600))

	_, stderr, err := run(t, "--config", cfg, "--base-url", url, "--min-interval", "0",
		"--account", "hedge", "-v", "account")
	require.NoError(t, err)

	got := api.last(t)
	assert.Equal(t, "hedge-first-key", got.apiKey)
	assert.NotEmpty(t, got.authent)
	assert.Contains(t, stderr, "session stats")
	assert.NotContains(t, stderr, testSecret)
}

func TestBadKeyRotation(t *testing.T) {
	isolate(t)
	_, url := newFakeAPI(t, nil)
	cfg := filepath.Join(t.TempDir(), "cfkit.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
api_key: default-public-key
api_secret: `+testSecret+`
rotation: sideways
`), 0o600))

	_, _, err := run(t, "--config", cfg, "--base-url", url, "tickers")
	require.Error(t, err)
	assert.Equal(t, ExitConfiguration, ExitCode(err))
}

func TestMissingConfigFile(t *testing.T) {
	isolate(t)

	_, _, err := run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "endpoints")
	require.Error(t, err)
	assert.Equal(t, ExitConfiguration, ExitCode(err))
}

func TestUnknownAccount(t *testing.T) {
	isolate(t)
	_, url := newFakeAPI(t, nil)

	_, _, err := run(t, "--base-url", url, "--account", "nope", "tickers")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `account "nope" not found`)
}

func TestResolveRequest(t *testing.T) {
	req, err := resolveRequest("account", "", false)
	require.NoError(t, err)
	assert.Equal(t, "/api/v2/account", req.Path)
	assert.True(t, req.RequireAuth)

	req, err = resolveRequest("LEGACY_TICKER", "tradeable=F-XBT:USD-Mar16&unit=USD", false)
	require.NoError(t, err)
	assert.Equal(t, "/api/ticker", req.Path)
	assert.Equal(t, "tradeable=F-XBT:USD-Mar16&unit=USD", req.Params.Encode())

	req, err = resolveRequest("/api/v2/custom", "", true)
	require.NoError(t, err)
	assert.True(t, req.RequireAuth)

	_, err = resolveRequest("bogus", "", false)
	assert.True(t, core.IsConfigurationError(err))
}

func TestResolveRequest_Names(t *testing.T) {
	tests := []struct {
		target string
		path   string
	}{
		{"tickers", "/api/v2/tickers"},
		{"orderbook", "/api/v2/orderbook"},
		{"ORDER_BOOK", "/api/v2/orderbook"},
		{"order_book", "/api/v2/orderbook"},
		{"OrderBook", "/api/v2/orderbook"},
		{"openorders", "/api/v2/openorders"},
		{"OPEN_ORDERS", "/api/v2/openorders"},
		{"sendorder", "/api/v2/sendorder"},
		{"openpositions", "/api/v2/openpositions"},
		{"withdrawal", "/api/v2/withdrawal"},
		{"openOrders", "/api/openOrders"},
		{"cancelOrder", "/api/cancelOrder"},
		{"cumulativebidask", "/api/cumulativebidask"},
		{"legacy_open_orders", "/api/openOrders"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			req, err := resolveRequest(tt.target, "", false)
			require.NoError(t, err)
			assert.Equal(t, tt.path, req.Path)
		})
	}
}

func TestQueryCmd_PathStyleName(t *testing.T) {
	isolate(t)
	api, url := newFakeAPI(t, map[string]string{
		"/api/v2/orderbook": `{"result":"success","orderBook":{"bids":[],"asks":[]}}`,
	})

	_, _, err := run(t, "--base-url", url, "--min-interval", "0",
		"query", "orderbook", "--params", "symbol=fi_xbtusd_180615")
	require.NoError(t, err)

	got := api.last(t)
	assert.Equal(t, "/api/v2/orderbook", got.path)
	assert.Equal(t, "symbol=fi_xbtusd_180615", got.body)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitFailure, ExitCode(errors.New("plain")))
	assert.Equal(t, ExitTransport, ExitCode(core.NewTransportError("x", errors.New("refused"))))
	assert.Equal(t, ExitDomain, ExitCode(core.NewDomainError("x", "boom")))
}

func TestPortfolioCmd(t *testing.T) {
	isolate(t)
	api, url := newFakeAPI(t, map[string]string{
		"/api/v2/account":       `{"result":"success","account":{"balances":{"xbt":1.25}}}`,
		"/api/v2/openpositions": `{"result":"success","openPositions":[{"symbol":"fi_xbtusd_180615","side":"short","size":2,"price":4225.5,"fillTime":"2016-02-25T09:45:53.818Z"}]}`,
	})
	cfg := filepath.Join(t.TempDir(), "cfkit.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
min_interval: 0s
accounts:
  main:
    api_key: main-public-key
    api_secret: `+testSecret+`
  hedge:
    api_key: hedge-public-key
    api_secret: `+testSecret+`
`), 0o600))

	out, _, err := run(t, "--config", cfg, "--base-url", url, "--json", "portfolio")
	require.NoError(t, err)

	var totals struct {
		Accounts []string `json:"accounts"`
	}
	require.NoError(t, sonic.UnmarshalString(out, &totals))
	assert.Equal(t, []string{"hedge", "main"}, totals.Accounts)
	assert.Contains(t, out, "2.50")
	assert.Len(t, api.hits, 2)

	out, _, err = run(t, "--config", cfg, "--base-url", url, "portfolio", "--positions")
	require.NoError(t, err)
	assert.Contains(t, out, "fi_xbtusd_180615")
	assert.Contains(t, out, "-4")
}

func TestPortfolioCmd_NeedsCredentials(t *testing.T) {
	isolate(t)
	api, url := newFakeAPI(t, nil)

	_, _, err := run(t, "--base-url", url, "--min-interval", "0", "portfolio")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrNoCredentials))
	assert.Empty(t, api.hits)
}

func TestOrderPlaceCmd(t *testing.T) {
	isolate(t)
	t.Setenv("CFKIT_API_KEY", "public-key")
	t.Setenv("CFKIT_API_SECRET", testSecret)
	api, url := newFakeAPI(t, map[string]string{
		"/api/v2/sendorder": `{"result":"success","sendStatus":{"receivedTime":"2016-02-25T09:45:53.601Z","status":"placed","order_id":"c18f0c17-9971-40e6-8e5b-10df05d422f0"}}`,
	})

	out, _, err := run(t, "--base-url", url, "--min-interval", "0",
		"order", "place", "fi_xbtusd_180615", "--size", "1", "--price", "9400")
	require.NoError(t, err)

	assert.Contains(t, out, "c18f0c17-9971-40e6-8e5b-10df05d422f0")
	assert.Contains(t, out, "PLACED")
	got := api.last(t)
	assert.Equal(t, "/api/v2/sendorder", got.path)
	assert.Equal(t, "orderType=lmt&symbol=fi_xbtusd_180615&side=buy&size=1&limitPrice=9400", got.body)
	assert.NotEmpty(t, got.authent)
}

func TestOrderPlaceCmd_Invalid(t *testing.T) {
	isolate(t)
	api, url := newFakeAPI(t, nil)

	_, _, err := run(t, "--base-url", url, "order", "place", "fi_xbtusd_180615", "--size", "0", "--price", "9400")
	require.Error(t, err)
	assert.Equal(t, ExitConfiguration, ExitCode(err))
	assert.Empty(t, api.hits)
}

func TestOrderCancelAllCmd(t *testing.T) {
	isolate(t)
	t.Setenv("CFKIT_API_KEY", "public-key")
	t.Setenv("CFKIT_API_SECRET", testSecret)
	api, url := newFakeAPI(t, map[string]string{
		"/api/v2/openorders": `{"result":"success","openOrders":[
			{"order_id":"59302619-41d2-4f0b-941f-7e7914760ad3","symbol":"fi_xbtusd_180615","side":"sell","orderType":"lmt","limitPrice":10640,"unfilledSize":1,"filledSize":0,"receivedTime":"2016-02-25T09:45:53.601Z","status":"untouched"}
		]}`,
		"/api/v2/cancelorder": `{"result":"success","cancelStatus":{"receivedTime":"2016-02-25T09:45:53.601Z","status":"cancelled"}}`,
	})

	out, _, err := run(t, "--base-url", url, "--min-interval", "0", "order", "cancel-all")
	require.NoError(t, err)

	assert.Contains(t, out, "CANCELED")
	got := api.last(t)
	assert.Equal(t, "/api/v2/cancelorder", got.path)
	assert.Equal(t, "order_id=59302619-41d2-4f0b-941f-7e7914760ad3", got.body)
}
