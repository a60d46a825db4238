package transfer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/Dyastin-0/lanlink/archive"
	"github.com/Dyastin-0/lanlink/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T, c *Coordinator) string {
	t.Helper()

	srv := NewServer(c, nil)
	require.NoError(t, srv.Start(t.Context()))
	require.NotZero(t, srv.Port())

	return fmt.Sprintf("http://127.0.0.1:%d", srv.Port())
}

func TestInfoEndpoint(t *testing.T) {
	c := newTestCoordinator(t, "node-info")
	base := startTestServer(t, c)

	resp, err := http.Get(base + "/lan/info")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var info types.PeerInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, "node-info", info.ID)
}

func TestUnknownTokenRejected(t *testing.T) {
	root := t.TempDir()
	c := newTestCoordinator(t, "node-tok", func(cfg *Config) {
		cfg.ReceivedRoot = func() (string, error) { return root, nil }
	})
	base := startTestServer(t, c)

	resp, err := http.Post(base+"/lan/upload?token=bogus", "application/octet-stream", bytes.NewReader([]byte("zipzip")))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var result types.UploadResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.False(t, result.OK)
	assert.Equal(t, "Invalid token", result.Error)

	// No directory is created for the attempt.
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUnknownRouteNotFound(t *testing.T) {
	c := newTestCoordinator(t, "node-404")
	base := startTestServer(t, c)

	resp, err := http.Get(base + "/lan/nope")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMalformedOfferRejected(t *testing.T) {
	c := newTestCoordinator(t, "node-bad")
	base := startTestServer(t, c)

	resp, err := http.Post(base+"/lan/offer", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadTokenSingleUseOverHTTP(t *testing.T) {
	root := t.TempDir()
	c := newTestCoordinator(t, "node-once", func(cfg *Config) {
		cfg.ReceivedRoot = func() (string, error) { return root, nil }
	})
	base := startTestServer(t, c)

	// Auto-accept incoming offers.
	ch, cancel := c.Events().Subscribe(16)
	defer cancel()
	go func() {
		for ev := range ch {
			if ev.Type == types.EventOfferPrompt {
				c.Decide(ev.OfferID, true)
			}
		}
	}()

	offer := types.OfferRequest{
		Sender:      types.PeerInfo{ID: "sender", Name: "sender"},
		ProjectName: "Notes",
	}
	payload, err := json.Marshal(offer)
	require.NoError(t, err)

	resp, err := http.Post(base+"/lan/offer", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	var offerResp types.OfferResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&offerResp))
	require.True(t, offerResp.Accept)
	require.NotEmpty(t, offerResp.Token)
	require.NotEmpty(t, offerResp.UploadURL)

	src := t.TempDir()
	require.NoError(t, os.WriteFile(src+"/a.txt", []byte("aaa"), 0644))

	res, err := archive.Zip(src, nil)
	require.NoError(t, err)
	defer os.Remove(res.Path)

	upload := func() *http.Response {
		data, err := os.ReadFile(res.Path)
		require.NoError(t, err)

		r, err := http.Post(offerResp.UploadURL, "application/octet-stream", bytes.NewReader(data))
		require.NoError(t, err)
		return r
	}

	first := upload()
	defer first.Body.Close()
	assert.Equal(t, http.StatusOK, first.StatusCode)

	var result types.UploadResult
	require.NoError(t, json.NewDecoder(first.Body).Decode(&result))
	assert.True(t, result.OK)
	assert.Equal(t, "Notes", result.ProjectName)

	// The token was consumed by the first redemption.
	second := upload()
	defer second.Body.Close()
	assert.Equal(t, http.StatusBadRequest, second.StatusCode)
}

func TestDecisionTimeoutDeclines(t *testing.T) {
	c := newTestCoordinator(t, "node-slow", func(cfg *Config) {
		cfg.DecisionTimeout = 100 * time.Millisecond
	})
	base := startTestServer(t, c)

	ch, cancel := c.Events().Subscribe(64)
	defer cancel()

	offer := types.OfferRequest{
		Sender:      types.PeerInfo{ID: "sender", Name: "sender"},
		ProjectName: "Slow",
	}
	payload, err := json.Marshal(offer)
	require.NoError(t, err)

	resp, err := http.Post(base+"/lan/offer", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	var offerResp types.OfferResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&offerResp))
	assert.False(t, offerResp.Accept)

	declines := 0
	promptID := ""

drain:
	for {
		select {
		case ev := <-ch:
			if ev.Type == types.EventOfferPrompt {
				promptID = ev.OfferID
			}
			if ev.Type == types.EventProgress && ev.Progress.Phase == PhaseDeclined {
				declines++
			}
		default:
			break drain
		}
	}

	assert.Equal(t, 1, declines, "timeout resolves as declined exactly once")
	assert.Equal(t, 0, c.ActiveReceives())

	// A decision arriving after the timeout is a no-op.
	require.NotEmpty(t, promptID)
	c.Decide(promptID, true)
}
