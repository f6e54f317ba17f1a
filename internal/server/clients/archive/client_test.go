package archive

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merklebot/storage/internal/common"
)

func TestContentAdd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/content.add", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "bafyencrypted", r.PostForm.Get("cid"))
		assert.Equal(t, "4096", r.PostForm.Get("fileSize"))
	}))
	defer srv.Close()

	client := New(srv.URL, 5*time.Second)
	require.NoError(t, client.ContentAdd(context.Background(), "bafyencrypted", 4096))
}

func TestPinAdd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pin.add", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "bafyencrypted", r.PostForm.Get("cid"))
	}))
	defer srv.Close()

	client := New(srv.URL, 5*time.Second)
	require.NoError(t, client.PinAdd(context.Background(), "bafyencrypted"))
}

func TestPinAddUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := New(srv.URL, 5*time.Second)
	err := client.PinAdd(context.Background(), "bafyencrypted")
	assert.ErrorIs(t, err, common.ErrorUpstreamUnavailable)
}
