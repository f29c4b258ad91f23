package keyring

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cfkit/pkg/core"
)

const secret = "c2VjcmV0LWJ5dGVz"

func mustKey(t *testing.T, id string) *APIKey {
	t.Helper()
	k, err := NewAPIKey(id, "key-"+id+"-0000000", secret)
	require.NoError(t, err)
	return k
}

func TestNewAPIKey(t *testing.T) {
	k, err := NewAPIKey("", "abcd1234efgh5678", secret)
	require.NoError(t, err)

	assert.Equal(t, "abcd****5678", k.ID)
	assert.Equal(t, "abcd1234efgh5678", k.Signer().APIKey())
	assert.Equal(t, "APIKey{ID:abcd****5678, Key:abcd****5678}", k.String())
	assert.NotContains(t, fmt.Sprintf("%v", k), secret)

	_, err = NewAPIKey("a", "key", "%%%")
	require.Error(t, err)
	assert.True(t, core.IsConfigurationError(err))
}

func TestFromConfig(t *testing.T) {
	ring, err := FromConfig(core.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 0, ring.Len())
	assert.Nil(t, ring.Current())
	assert.Nil(t, ring.Next())

	ring, err = FromConfig(core.DefaultConfig().WithCredentials(&core.Credentials{APIKey: "public", APISecret: secret}))
	require.NoError(t, err)
	require.Equal(t, 1, ring.Len())
	assert.Equal(t, "public", ring.Current().Key)

	_, err = FromConfig(core.DefaultConfig().WithCredentials(&core.Credentials{APIKey: "public", APISecret: "!!"}))
	assert.True(t, core.IsConfigurationError(err))
}

func TestFromConfig_ExtraKeys(t *testing.T) {
	cfg := core.DefaultConfig().
		WithCredentials(&core.Credentials{APIKey: "primary-key-0001", APISecret: secret}).
		WithKeys(core.RotateRoundRobin,
			&core.Credentials{APIKey: "second-key-00002", APISecret: secret},
			&core.Credentials{APIKey: "primary-key-0001", APISecret: secret},
			nil,
		)

	ring, err := FromConfig(cfg)
	require.NoError(t, err)
	require.Equal(t, 2, ring.Len())

	assert.Equal(t, "primary-key-0001", ring.Next().Key)
	assert.Equal(t, "second-key-00002", ring.Next().Key)
	assert.Equal(t, "primary-key-0001", ring.Next().Key)

	keys := ring.Keys()
	assert.Equal(t, "prim****0001", keys[0].ID)
	assert.Equal(t, "seco****0002", keys[1].ID)
}

func TestFromConfig_BadKey(t *testing.T) {
	cfg := core.DefaultConfig().WithKeys(core.RotateOnError, &core.Credentials{APIKey: "second", APISecret: "!!"})

	_, err := FromConfig(cfg)
	require.Error(t, err)
	assert.True(t, core.IsConfigurationError(err))
	assert.NotContains(t, err.Error(), "!!")
}

func TestParseRotation(t *testing.T) {
	tests := []struct {
		name string
		want RotationStrategy
	}{
		{"", RotationOnRateLimit},
		{core.RotateOnRateLimit, RotationOnRateLimit},
		{core.RotateRoundRobin, RotationRoundRobin},
		{core.RotateOnError, RotationOnError},
	}
	for _, tt := range tests {
		got, err := ParseRotation(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}

	_, err := ParseRotation("random")
	assert.True(t, core.IsConfigurationError(err))
}

func TestKeyRing_RoundRobin(t *testing.T) {
	ring := NewKeyRing([]*APIKey{mustKey(t, "a"), mustKey(t, "b"), mustKey(t, "c")}, RotationRoundRobin)

	var got []string
	for i := 0; i < 4; i++ {
		got = append(got, ring.Next().ID)
	}

	assert.Equal(t, []string{"a", "b", "c", "a"}, got)
	for _, k := range ring.Keys() {
		assert.False(t, k.LastUsed.IsZero(), k.ID)
	}
}

func TestKeyRing_SkipsDisabled(t *testing.T) {
	ring := NewKeyRing([]*APIKey{mustKey(t, "a"), mustKey(t, "b")}, RotationRoundRobin)

	ring.Disable("a")
	assert.Equal(t, "b", ring.Current().ID)
	assert.Equal(t, "b", ring.Next().ID)
	assert.Equal(t, "b", ring.Next().ID)
	assert.True(t, ring.Keys()[0].Disabled)

	ring.Disable("b")
	assert.Nil(t, ring.Current())
	assert.Nil(t, ring.Next())

	ring.Disable("missing")
	assert.Equal(t, 2, ring.Len())
}

func TestKeyRing_OnError(t *testing.T) {
	ring := NewKeyRing([]*APIKey{mustKey(t, "a"), mustKey(t, "b")}, RotationOnError)

	ring.OnError(errors.New("boom"))

	assert.Equal(t, "b", ring.Current().ID)
	assert.Equal(t, 1, ring.Keys()[0].ErrorCount)
	assert.Zero(t, ring.Keys()[1].ErrorCount)
}

func TestKeyRing_OnRateLimit(t *testing.T) {
	ring := NewKeyRing([]*APIKey{mustKey(t, "a"), mustKey(t, "b")}, RotationOnRateLimit)

	ring.OnError(core.NewDomainError("sendorder", "invalidArgument"))
	assert.Equal(t, "a", ring.Current().ID)

	ring.OnError(core.NewDomainError("sendorder", string(core.ErrCodeAPILimitExceeded)))
	assert.Equal(t, "b", ring.Current().ID)

	assert.Equal(t, "b", ring.Next().ID, "rate limit strategy does not rotate on use")
	assert.Equal(t, "b", ring.Next().ID)
}

func TestKeyRing_Add(t *testing.T) {
	ring := NewKeyRing(nil, RotationRoundRobin)

	ring.Add(mustKey(t, "a"))
	ring.Add(mustKey(t, "a"))
	ring.Add(mustKey(t, "b"))
	assert.Equal(t, 2, ring.Len())
	assert.NotNil(t, ring.Current().Signer())
	assert.Equal(t, "a", ring.Current().ID)
}

func TestKeyRing_CopiesAreDetached(t *testing.T) {
	ring := NewKeyRing([]*APIKey{mustKey(t, "a")}, RotationOnError)

	cur := ring.Current()
	cur.Disabled = true

	assert.NotNil(t, ring.Current())
}

func TestKeyRing_Concurrent(t *testing.T) {
	ring := NewKeyRing([]*APIKey{mustKey(t, "a"), mustKey(t, "b")}, RotationRoundRobin)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if k := ring.Next(); k != nil {
				ring.OnError(errors.New("x"))
			}
			_ = ring.Keys()
		}()
	}
	wg.Wait()

	total := 0
	for _, k := range ring.Keys() {
		total += k.ErrorCount
	}
	assert.Equal(t, 50, total)
}
