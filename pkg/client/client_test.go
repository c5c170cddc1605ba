package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akeren/submission-history/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noRetry() Option {
	return WithRetry(retry.NewExponentialBackoff(&retry.Config{MaxAttempts: 1}))
}

func TestClient_Submit(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/submit", r.URL.Path)

			var req SubmitRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, SubmitRequest{Date: "2024-01-15", FirstName: "John", LastName: "Doe"}, req)

			_, _ = w.Write([]byte(`{"success":true,"data":[{"date":"2024-01-15","name":"John Doe"},{"date":"2024-01-15","name":"John Doe"}]}`))
		}))
		defer srv.Close()

		result, err := New(srv.URL+"/").Submit(context.Background(), SubmitRequest{Date: "2024-01-15", FirstName: "John", LastName: "Doe"})

		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Len(t, result.Data, 2)
		assert.Equal(t, "John Doe", result.Data[0].Name)
	})

	t.Run("validation errors are data", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"success":false,"error":{"first_name":["No whitespace in first name is allowed"]}}`))
		}))
		defer srv.Close()

		result, err := New(srv.URL).Submit(context.Background(), SubmitRequest{FirstName: "a b"})

		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, []string{"No whitespace in first name is allowed"}, result.Errors["first_name"])
	})

	t.Run("server error is a network error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"success":false,"error":{"general":["Database error"]}}`))
		}))
		defer srv.Close()

		_, err := New(srv.URL).Submit(context.Background(), SubmitRequest{})

		var netErr *NetworkError
		require.True(t, errors.As(err, &netErr))
		assert.Equal(t, http.StatusInternalServerError, netErr.StatusCode)
	})

	t.Run("unreachable server", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := New(url).Submit(context.Background(), SubmitRequest{})

		assert.True(t, IsNetworkError(err))
	})
}

func TestClient_ListHistory(t *testing.T) {
	t.Run("decodes the array", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/history", r.URL.Path)
			_, _ = w.Write([]byte(`[{"date":"2024-01-20","first_name":"John","last_name":"Doe","count":1}]`))
		}))
		defer srv.Close()

		entries, err := New(srv.URL, noRetry()).ListHistory(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []HistoryEntry{{Date: "2024-01-20", FirstName: "John", LastName: "Doe", Count: 1}}, entries)
	})

	t.Run("empty array", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		}))
		defer srv.Close()

		entries, err := New(srv.URL, noRetry()).ListHistory(context.Background())

		require.NoError(t, err)
		assert.NotNil(t, entries)
		assert.Empty(t, entries)
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"Database error"}`))
				return
			}
			_, _ = w.Write([]byte(`[]`))
		}))
		defer srv.Close()

		policy := retry.NewExponentialBackoff(&retry.Config{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			MaxDelay:    time.Millisecond,
			Multiplier:  1,
			Retryable:   isRetryable,
		})

		entries, err := New(srv.URL, WithRetry(policy)).ListHistory(context.Background())

		require.NoError(t, err)
		assert.Empty(t, entries)
		assert.EqualValues(t, 2, calls.Load())
	})

	t.Run("persistent failure surfaces as network error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := New(srv.URL, noRetry()).ListHistory(context.Background())

		var netErr *NetworkError
		require.True(t, errors.As(err, &netErr))
		assert.Equal(t, http.StatusInternalServerError, netErr.StatusCode)
		assert.Contains(t, netErr.Error(), "empty response body")
	})
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&NetworkError{Err: errors.New("connection refused")}))
	assert.True(t, isRetryable(&NetworkError{StatusCode: http.StatusBadGateway, Err: errors.New("x")}))
	assert.False(t, isRetryable(&NetworkError{StatusCode: http.StatusNotFound, Err: errors.New("x")}))
	assert.False(t, isRetryable(&NetworkError{Err: context.Canceled}))
	assert.False(t, isRetryable(errors.New("plain")))
}
