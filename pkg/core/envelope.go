package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/apd/v3"
)

// ResultSuccess is the only result value that marks a successful call.
const ResultSuccess = "success"

// Envelope holds the fields every response body carries.
type Envelope struct {
	Result     string `json:"result"`
	Error      string `json:"error,omitempty"`
	ServerTime string `json:"serverTime,omitempty"`
}

// Success reports whether the server accepted the call.
func (e *Envelope) Success() bool {
	return e.Result == ResultSuccess
}

// envelopeKeys are never treated as payload fields.
var envelopeKeys = map[string]struct{}{
	"result":     {},
	"error":      {},
	"serverTime": {},
}

// CheckEnvelope decodes the envelope of body. A body that is not a JSON
// object yields a decode error. A result other than "success" yields a
// domain error carrying the server's error string verbatim.
func CheckEnvelope(op string, body []byte) (*Envelope, error) {
	var env Envelope
	if err := sonic.Unmarshal(body, &env); err != nil {
		return nil, NewDecodeError(op, err)
	}
	if !env.Success() {
		return &env, NewDomainError(op, env.Error)
	}
	return &env, nil
}

// DecodeEnvelope checks the envelope and then decodes the full body into v.
func DecodeEnvelope(op string, body []byte, v any) error {
	if _, err := CheckEnvelope(op, body); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if err := sonic.Unmarshal(body, v); err != nil {
		return NewDecodeError(op, err)
	}
	return nil
}

// DecodeNested decodes a JSON document that the server embedded as a string
// value inside another document.
func DecodeNested(op, s string, v any) error {
	if err := sonic.UnmarshalString(s, v); err != nil {
		return NewDecodeError(op, fmt.Errorf("nested document: %w", err))
	}
	return nil
}

// ProjectBalances turns every non-envelope field of fields into a decimal
// balance. Values may be JSON numbers or numeric strings. Keys named in skip
// are ignored as well.
func ProjectBalances(op string, fields map[string]json.RawMessage, skip ...string) (map[string]*apd.Decimal, error) {
	ignored := make(map[string]struct{}, len(skip))
	for _, k := range skip {
		ignored[k] = struct{}{}
	}

	balances := make(map[string]*apd.Decimal, len(fields))
	for key, raw := range fields {
		if _, ok := envelopeKeys[key]; ok {
			continue
		}
		if _, ok := ignored[key]; ok {
			continue
		}
		d, err := rawDecimal(raw)
		if err != nil {
			return nil, NewDecodeError(op, fmt.Errorf("balance %q: %w", key, err))
		}
		balances[key] = d
	}
	return balances, nil
}

func rawDecimal(raw json.RawMessage) (*apd.Decimal, error) {
	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(s, `"`) {
		var unquoted string
		if err := sonic.UnmarshalString(s, &unquoted); err != nil {
			return nil, err
		}
		s = unquoted
	}
	d := new(apd.Decimal)
	if err := ParseDecimal(d, s); err != nil {
		return nil, err
	}
	return d, nil
}

var errEmptyDecimal = errors.New("empty decimal")

// ParseDecimal parses s into dest. An empty string or JSON null leaves dest at zero.
func ParseDecimal(dest *apd.Decimal, s string) error {
	if s == "" || s == "null" {
		dest.SetInt64(0)
		return nil
	}
	if _, _, err := apd.BaseContext.SetString(dest, s); err != nil {
		return fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return nil
}

// RequireDecimal is ParseDecimal for fields the exchange always populates.
func RequireDecimal(dest *apd.Decimal, s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: field missing", errEmptyDecimal)
	}
	return ParseDecimal(dest, s)
}
