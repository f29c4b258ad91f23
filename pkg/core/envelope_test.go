package core

import (
	"encoding/json"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckEnvelope(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantKind ErrorKind
		wantMsg  string
	}{
		{
			name: "success",
			body: `{"result":"success","serverTime":"2016-02-25T09:45:53.818Z"}`,
		},
		{
			name:     "server_error",
			body:     `{"result":"error","error":"boom"}`,
			wantKind: ErrorKindDomain,
			wantMsg:  "boom",
		},
		{
			name:     "error_without_message",
			body:     `{"result":"error"}`,
			wantKind: ErrorKindDomain,
			wantMsg:  "",
		},
		{
			name:     "missing_result",
			body:     `{"serverTime":"2016-02-25T09:45:53.818Z"}`,
			wantKind: ErrorKindDomain,
		},
		{
			name:     "not_json",
			body:     `<html>bad gateway</html>`,
			wantKind: ErrorKindDecode,
		},
		{
			name:     "empty_body",
			body:     ``,
			wantKind: ErrorKindDecode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := CheckEnvelope("test", []byte(tt.body))
			if tt.wantKind == ErrorKindUnknown {
				require.NoError(t, err)
				assert.True(t, env.Success())
				assert.Equal(t, "2016-02-25T09:45:53.818Z", env.ServerTime)
				return
			}

			require.Error(t, err)
			assert.True(t, IsKind(err, tt.wantKind), "got %v", err)
			if tt.wantKind == ErrorKindDomain {
				var e *Error
				require.ErrorAs(t, err, &e)
				assert.Equal(t, tt.wantMsg, e.Message)
				assert.Equal(t, "test", e.Op)
			}
		})
	}
}

func TestDecodeEnvelope(t *testing.T) {
	type payload struct {
		OrderID string `json:"orderId"`
	}

	t.Run("success", func(t *testing.T) {
		var p payload
		err := DecodeEnvelope("placeOrder", []byte(`{"result":"success","orderId":"abc-1"}`), &p)
		require.NoError(t, err)
		assert.Equal(t, "abc-1", p.OrderID)
	})

	t.Run("error_result_skips_payload", func(t *testing.T) {
		p := payload{OrderID: "untouched"}
		err := DecodeEnvelope("placeOrder", []byte(`{"result":"error","error":"invalidArgument","orderId":"x"}`), &p)
		require.Error(t, err)
		assert.True(t, IsErrorCode(err, ErrCodeInvalidArgument))
		assert.Equal(t, "untouched", p.OrderID)
	})

	t.Run("payload_type_mismatch", func(t *testing.T) {
		var p payload
		err := DecodeEnvelope("placeOrder", []byte(`{"result":"success","orderId":42}`), &p)
		require.Error(t, err)
		assert.True(t, IsDecodeError(err))
	})

	t.Run("nil_target", func(t *testing.T) {
		assert.NoError(t, DecodeEnvelope("ping", []byte(`{"result":"success"}`), nil))
	})
}

func TestDecodeNested(t *testing.T) {
	var levels [][]float64
	err := DecodeNested("cumulativebidask", "[[10,5],[12,3]]", &levels)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{10, 5}, {12, 3}}, levels)

	err = DecodeNested("cumulativebidask", "[[10,", &levels)
	require.Error(t, err)
	assert.True(t, IsDecodeError(err))
}

func TestProjectBalances(t *testing.T) {
	body := `{"result":"success","serverTime":"2016-02-25T09:45:53.818Z","F-XBT:USD-Mar16":"12","XBT":"1.5","USD":-3.25}`

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(body), &fields))

	balances, err := ProjectBalances("balance", fields)
	require.NoError(t, err)

	require.Len(t, balances, 3)
	assert.Equal(t, "12", balances["F-XBT:USD-Mar16"].String())
	assert.Equal(t, "1.5", balances["XBT"].String())
	assert.Equal(t, "-3.25", balances["USD"].String())
	assert.NotContains(t, balances, "result")
	assert.NotContains(t, balances, "serverTime")

	balances, err = ProjectBalances("balance", fields, "USD")
	require.NoError(t, err)
	assert.Len(t, balances, 2)

	fields["bad"] = json.RawMessage(`"abc"`)
	_, err = ProjectBalances("balance", fields)
	require.Error(t, err)
	assert.True(t, IsDecodeError(err))
}

func TestParseDecimal(t *testing.T) {
	var d apd.Decimal

	require.NoError(t, ParseDecimal(&d, "400.5"))
	assert.Equal(t, "400.5", d.String())

	require.NoError(t, ParseDecimal(&d, ""))
	assert.True(t, d.IsZero())

	assert.Error(t, ParseDecimal(&d, "four"))
	assert.Error(t, RequireDecimal(&d, " "))
	require.NoError(t, RequireDecimal(&d, "1e-3"))
	assert.Equal(t, "0.001", d.Text('f'))
}
