package queryapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"unicode/utf8"

	"moviemate/app/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(config.Backend{
		BaseURL:         srv.URL + "/",
		SubscriptionKey: "secret",
		Timeout:         2 * time.Second,
	})
	c.now = func() time.Time {
		return time.Date(2024, 5, 1, 10, 30, 0, 0, time.FixedZone("CET", 3600))
	}

	return c
}

func TestDispatchSendsQuery(t *testing.T) {
	var got queryRequest

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "no-cache", r.Header.Get("Cache-Control"))
		assert.Equal(t, "secret", r.Header.Get("Ocp-Apim-Subscription-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_, _ = w.Write([]byte(`{"answer":"Inception","chart":"{\"data\":[]}","reviewImage":{"url":"x"}}`))
	})

	resp, err := c.Dispatch(context.Background(), "movies by Nolan")
	require.NoError(t, err)

	assert.Equal(t, "movies by Nolan", got.Query)
	assert.Equal(t, "2024-05-01T09:30:00Z", got.LocalTimeStamp)

	assert.Equal(t, "Inception", resp.Answer)
	assert.Equal(t, `"{\"data\":[]}"`, string(resp.Chart))
	assert.JSONEq(t, `{"url":"x"}`, string(resp.ReviewImage))
}

func TestDispatchEmptyQueryIsSent(t *testing.T) {
	called := false

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, _ = w.Write([]byte(`{"answer":""}`))
	})

	resp, err := c.Dispatch(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, called)
	assert.Empty(t, resp.Chart)
}

func TestDispatchLooseFieldTypes(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		answer string
		chart  string
	}{
		{name: "object chart", body: `{"answer":"X","chart":{"data":[{"type":"bar"}],"layout":{}}}`, answer: "X", chart: `{"data":[{"type":"bar"}],"layout":{}}`},
		{name: "number chart", body: `{"answer":"X","chart":42}`, answer: "X", chart: `42`},
		{name: "null chart", body: `{"answer":"X","chart":null}`, answer: "X"},
		{name: "number answer", body: `{"answer":5}`},
		{name: "array answer", body: `{"answer":["X"],"chart":"{}"}`, chart: `"{}"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			resp, err := c.Dispatch(context.Background(), "q")
			require.NoError(t, err)

			assert.Equal(t, tt.answer, resp.Answer)
			assert.Equal(t, tt.chart, string(resp.Chart))
		})
	}
}

func TestTruncateKeepsRunes(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Amé...", truncate("Amélie Poulain", 3))
	assert.True(t, utf8.ValidString(truncate("ééééé", 2)))
}

func TestDispatchFailures(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "internal", http.StatusInternalServerError)
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`not json`))
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "plain string body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`"Something went wrong"`))
			},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)

			resp, err := c.Dispatch(context.Background(), "q")
			assert.Nil(t, resp)

			var failure *Failure
			require.True(t, errors.As(err, &failure))
			assert.Equal(t, FallbackMessage, failure.Message)
			assert.Equal(t, tt.wantStatus, failure.StatusCode)
		})
	}
}

func TestDispatchCancelled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Dispatch(ctx, "slow")

	var failure *Failure
	require.True(t, errors.As(err, &failure))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDispatchUnreachable(t *testing.T) {
	c := New(config.Backend{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})

	_, err := c.Dispatch(context.Background(), "q")

	var failure *Failure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, FallbackMessage, failure.Message)
}
