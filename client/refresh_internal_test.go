package client

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshGroupCoalescesConcurrentCallers(t *testing.T) {
	var group refreshGroup
	var executions atomic.Int32

	started := make(chan struct{})
	release := make(chan struct{})

	// First caller holds the in-flight slot open.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		access, err := group.do("refresh-token", func() (string, error) {
			executions.Add(1)
			close(started)
			<-release
			return "access-new", nil
		})
		assert.NoError(t, err)
		assert.Equal(t, "access-new", access)
	}()

	<-started

	// Late arrivals must wait for and share the first result.
	const followers = 5
	for i := 0; i < followers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			access, err := group.do("refresh-token", func() (string, error) {
				executions.Add(1)
				return "access-other", nil
			})
			assert.NoError(t, err)
			assert.Equal(t, "access-new", access)
		}()
	}

	// Give the followers a moment to park on the in-flight call.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), executions.Load(), "only the first caller executes the refresh")
}

func TestRefreshGroupDistinctKeysRunIndependently(t *testing.T) {
	var group refreshGroup

	first, err := group.do("token-a", func() (string, error) { return "access-a", nil })
	require.NoError(t, err)
	second, err := group.do("token-b", func() (string, error) { return "access-b", nil })
	require.NoError(t, err)

	assert.Equal(t, "access-a", first)
	assert.Equal(t, "access-b", second)
}

func TestTokenExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	makeToken := func(exp time.Time) string {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"exp": exp.Unix(),
		}).SignedString([]byte("secret"))
		require.NoError(t, err)
		return signed
	}
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 1,
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{name: "expired", token: makeToken(now.Add(-time.Hour)), want: true},
		{name: "inside leeway window", token: makeToken(now.Add(expiryLeeway / 2)), want: true},
		{name: "live", token: makeToken(now.Add(time.Hour)), want: false},
		{name: "no exp claim", token: noExp, want: false},
		{name: "opaque token", token: "not-a-jwt", want: false},
		{name: "empty", token: "", want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tokenExpired(tc.token, now))
		})
	}
}
