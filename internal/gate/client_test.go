package gate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clientFor(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return NewClient(u.Hostname(), port)
}

func TestSendPostsSignal(t *testing.T) {
	var got Signal
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/backend_signal", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := clientFor(t, srv)
	err := c.Send(context.Background(), Signal{
		LicensePlate: "29A-123.45",
		UserID:       7,
		Action:       ActionOpenEntry,
		SpotID:       3,
	})
	require.NoError(t, err)
	assert.Equal(t, "29A-123.45", got.LicensePlate)
	assert.Equal(t, ActionOpenEntry, got.Action)
	assert.Equal(t, uint64(3), got.SpotID)
}

func TestSendTreatsErrorStatusAsRefusal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := clientFor(t, srv).Send(context.Background(), Signal{Action: ActionOpenExit})
	assert.Error(t, err)
}

func TestSendFailsWhenControllerDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := clientFor(t, srv)
	srv.Close()

	err := c.Send(context.Background(), Signal{Action: ActionOpenEntry})
	assert.Error(t, err)
}

func TestInSlotBand(t *testing.T) {
	assert.False(t, InSlot(4.9))
	assert.True(t, InSlot(5))
	assert.True(t, InSlot(6.5))
	assert.True(t, InSlot(8))
	assert.False(t, InSlot(8.1))
	assert.False(t, InSlot(0))
}
