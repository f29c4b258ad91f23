package cryptofacilities

import (
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cfkit/pkg/core"
	"cfkit/pkg/exchange"
)

func decimal(t *testing.T, s string) apd.Decimal {
	t.Helper()
	var d apd.Decimal
	require.NoError(t, core.ParseDecimal(&d, s))
	return d
}

func TestSendOrderParams(t *testing.T) {
	stop := decimal(t, "9350.5")

	tests := []struct {
		name string
		req  exchange.OrderRequest
		want string
	}{
		{
			name: "limit",
			req: exchange.OrderRequest{
				Symbol: "fi_xbtusd_180615", Side: core.SideBuy, Type: core.TypeLimit,
				Size: decimal(t, "1"), LimitPrice: decimal(t, "9400"),
			},
			want: "orderType=lmt&symbol=fi_xbtusd_180615&side=buy&size=1&limitPrice=9400",
		},
		{
			name: "stop",
			req: exchange.OrderRequest{
				Symbol: "fi_xbtusd_180615", Side: core.SideSell, Type: core.TypeStop,
				Size: decimal(t, "2"), LimitPrice: decimal(t, "9300"), StopPrice: &stop,
			},
			want: "orderType=stp&symbol=fi_xbtusd_180615&side=sell&size=2&limitPrice=9300&stopPrice=9350.5",
		},
		{
			name: "large_price_stays_plain",
			req: exchange.OrderRequest{
				Symbol: "fi_xbtusd_180615", Side: core.SideBuy, Type: core.TypeLimit,
				Size: decimal(t, "1E+2"), LimitPrice: decimal(t, "1E+4"),
			},
			want: "orderType=lmt&symbol=fi_xbtusd_180615&side=buy&size=100&limitPrice=10000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sendOrderParams(&tt.req).Encode())
		})
	}
}

func TestTimeFilterParams(t *testing.T) {
	ts := time.Date(2016, 2, 25, 9, 45, 53, 0, time.FixedZone("CET", 3600))
	opts := exchange.ApplyOptions(exchange.WithLastTime(ts))

	assert.Equal(t, "symbol=fi_xbtusd_180615&lastTime=2016-02-25T08:45:53.0000000Z",
		historyParams("fi_xbtusd_180615", opts).Encode())
	assert.Equal(t, "lastFillTime=2016-02-25T08:45:53.0000000Z", fillsParams(opts).Encode())
	assert.Equal(t, "lastTransferTime=2016-02-25T08:45:53.0000000Z", transfersParams(opts).Encode())

	none := exchange.ApplyOptions()
	assert.Equal(t, "symbol=fi_xbtusd_180615", historyParams("fi_xbtusd_180615", none).Encode())
	assert.Equal(t, "", fillsParams(none).Encode())
	assert.Equal(t, "", transfersParams(none).Encode())
}

func TestSimpleParams(t *testing.T) {
	assert.Equal(t, "symbol=fi_xbtusd_180615", orderBookParams("fi_xbtusd_180615").Encode())
	assert.Equal(t, "order_id=c18f0c17-9971-40e6-8e5b-10df05d422f0",
		cancelOrderParams("c18f0c17-9971-40e6-8e5b-10df05d422f0").Encode())
	assert.Equal(t, "targetAddress=3AMVN8PdrWkB8CBs3zYYSXVF4v5b7iSYGr&currency=xbt&amount=0.5",
		withdrawalParams("3AMVN8PdrWkB8CBs3zYYSXVF4v5b7iSYGr", "xbt", "0.5").Encode())
}
