package jobcost

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookClient_PostsJobID(t *testing.T) {
	var got recomputeRequest
	var contentType, method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		contentType = r.Header.Get("content-type")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	err := NewWebhookClient(srv.URL, time.Second).RecomputeLinkedJobCosts(context.Background(), "OT-42")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "OT-42", got.JobID)
}

func TestWebhookClient_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "orden de trabajo cerrada", http.StatusConflict)
	}))
	defer srv.Close()

	err := NewWebhookClient(srv.URL, time.Second).RecomputeLinkedJobCosts(context.Background(), "OT-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")
	assert.Contains(t, err.Error(), "orden de trabajo cerrada")
}

func TestWebhookClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	err := NewWebhookClient(srv.URL, 50*time.Millisecond).RecomputeLinkedJobCosts(context.Background(), "OT-1")
	assert.Error(t, err)
}

func TestWebhookClient_WithoutURL(t *testing.T) {
	err := NewWebhookClient("  ", 0).RecomputeLinkedJobCosts(context.Background(), "OT-1")
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	assert.NoError(t, Noop{}.RecomputeLinkedJobCosts(context.Background(), "OT-1"))
}
