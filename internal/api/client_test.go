package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	consoleerrors "github.com/afyamkononi/afyadmin/internal/errors"
	"github.com/afyamkononi/afyadmin/internal/log"
	"github.com/afyamkononi/afyadmin/internal/metrics"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{BaseURL: srv.URL + "/admin", Logger: log.Discard()})
	require.NoError(t, err)
	return c, srv
}

func TestNewClient_RejectsBadBaseURL(t *testing.T) {
	for _, base := range []string{"", "   ", "budgetwithai.com/admin", "/admin"} {
		_, err := NewClient(Config{BaseURL: base})
		require.Error(t, err, "base %q", base)
		assert.Equal(t, consoleerrors.ErrCodeConfigInvalid, consoleerrors.CodeOf(err))
	}
}

func TestDo_AttachesBearerTokenAndRequestID(t *testing.T) {
	var gotAuth, gotID, gotPath string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get(HeaderAuthorization)
		gotID = r.Header.Get(HeaderRequestID)
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`[{"id":1}]`))
	}))

	require.NoError(t, c.Get(context.Background(), "/doctors", nil))
	assert.Empty(t, gotAuth, "no token set yet")
	assert.Equal(t, "/admin/doctors", gotPath)
	assert.Len(t, gotID, 36)

	c.SetToken("T")
	var out []map[string]any
	require.NoError(t, c.Get(context.Background(), "doctors", &out))
	assert.Equal(t, "Bearer T", gotAuth)
	assert.Len(t, out, 1)

	c.SetToken("")
	require.NoError(t, c.Get(context.Background(), "/doctors", nil))
	assert.Empty(t, gotAuth)
}

func TestDo_PublicRequestSkipsTokenAndHooks(t *testing.T) {
	var gotAuth string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get(HeaderAuthorization)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	c.SetToken("T")

	var hooks atomic.Int32
	c.OnUnauthorized(func(error) { hooks.Add(1) })

	err := c.Post(context.Background(), "/signin", map[string]string{"email": "a"}, nil, Public())
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Empty(t, gotAuth)
	assert.Equal(t, int32(0), hooks.Load())
}

func TestDo_UnauthorizedRunsHooksBeforeReturning(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"token expired"}`))
	}))
	c.SetToken("stale")

	var hookErr error
	c.OnUnauthorized(func(err error) {
		hookErr = err
		c.SetToken("")
	})

	err := c.Delete(context.Background(), "/doctors/7", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, consoleerrors.ErrCodeAPIUnauthorized, consoleerrors.CodeOf(err))
	assert.Same(t, err, hookErr)
	assert.Empty(t, c.Token())

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "token expired", apiErr.Message)
	assert.Equal(t, "DELETE", apiErr.Method)
}

func TestDo_NonUnauthorizedErrorsPassThrough(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	var hooks atomic.Int32
	c.OnUnauthorized(func(error) { hooks.Add(1) })

	err := c.Get(context.Background(), "/patients", nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
	assert.Equal(t, consoleerrors.ErrCodeAPIStatus, consoleerrors.CodeOf(err))
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, int32(0), hooks.Load())
}

func TestDo_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := NewClient(Config{BaseURL: base, Logger: log.Discard(), Timeout: time.Second})
	require.NoError(t, err)

	err = c.Get(context.Background(), "/doctors", nil)
	require.Error(t, err)
	assert.Equal(t, 0, StatusCode(err))
	assert.Equal(t, consoleerrors.ErrCodeAPIRequest, consoleerrors.CodeOf(err))
}

func TestDo_SendsJSONBody(t *testing.T) {
	var got map[string]any
	var contentType string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}))

	body := map[string]any{"first_name": "Jane", "consultation_fee": 1500}
	require.NoError(t, c.Put(context.Background(), "/doctors/3", body, nil))
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "Jane", got["first_name"])
	assert.Equal(t, float64(1500), got["consultation_fee"])
}

func TestDo_RawMessageKeepsBody(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"messages":[{"id":"m1"}]}`))
	}))

	var raw json.RawMessage
	require.NoError(t, c.Get(context.Background(), "/contact", &raw))
	assert.JSONEq(t, `{"messages":[{"id":"m1"}]}`, string(raw))
}

func TestDo_DecodeError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))

	var out []any
	err := c.Get(context.Background(), "/doctors", &out)
	assert.Equal(t, consoleerrors.ErrCodeAPIDecode, consoleerrors.CodeOf(err))
}

func TestDo_AbsoluteURLBypassesBase(t *testing.T) {
	var hits atomic.Int32
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/api/v1.0/contact", r.URL.Path)
		assert.Equal(t, "Bearer T", r.Header.Get(HeaderAuthorization))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer other.Close()

	c, _ := newTestClient(t, http.NotFoundHandler())
	c.SetToken("T")
	require.NoError(t, c.Get(context.Background(), other.URL+"/api/v1.0/contact", nil))
	assert.Equal(t, int32(1), hits.Load())
}

func TestDo_Query(t *testing.T) {
	var raw string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw = r.URL.RawQuery
	}))
	require.NoError(t, c.Get(context.Background(), "/feedbacks", nil, Query(url.Values{"page": {"2"}})))
	assert.Equal(t, "page=2", raw)
}

func TestDo_RateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, RateLimit: 0.001, RateBurst: 1, Logger: log.Discard()})
	require.NoError(t, err)

	require.NoError(t, c.Get(context.Background(), "/a", nil))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = c.Get(ctx, "/b", nil)
	assert.Equal(t, consoleerrors.ErrCodeAPIRateLimited, consoleerrors.CodeOf(err))
}

func TestDo_RecordsMetrics(t *testing.T) {
	_, m := metrics.NewRegistry()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, Metrics: m, Logger: log.Discard()})
	require.NoError(t, err)
	_ = c.Get(context.Background(), "/doctors", nil)
	_ = c.Post(context.Background(), "/signin", nil, nil, Public())

	assert.Equal(t, float64(1), testutil.ToFloat64(m.APIRequests.WithLabelValues("GET", "doctors", "401")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ForcedLogouts), "public 401s are not forced logouts")
}

// Property: whatever the status, the unauthorized hook runs exactly when the
// status is 401 and the request is protected.
func TestDo_HookRunsOnlyOnProtected401(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		status := rapid.SampledFrom([]int{200, 201, 204, 400, 401, 403, 404, 422, 500, 503}).Draw(rt, "status")
		public := rapid.Bool().Draw(rt, "public")

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.Copy(io.Discard, r.Body)
			w.WriteHeader(status)
		}))
		defer srv.Close()

		c, err := NewClient(Config{BaseURL: srv.URL, Logger: log.Discard()})
		if err != nil {
			rt.Fatal(err)
		}
		var hooks int
		c.OnUnauthorized(func(error) { hooks++ })

		var opts []RequestOption
		if public {
			opts = append(opts, Public())
		}
		err = c.Get(context.Background(), "/x", nil, opts...)

		want := 0
		if status == 401 && !public {
			want = 1
		}
		if hooks != want {
			rt.Fatalf("status %d public=%v: hooks=%d want %d", status, public, hooks, want)
		}
		if (status >= 300) != (err != nil) {
			rt.Fatalf("status %d: err=%v", status, err)
		}
		if status == 401 && !errors.Is(err, ErrUnauthorized) {
			rt.Fatalf("401 must match ErrUnauthorized")
		}
	})
}
