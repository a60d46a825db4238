package transfer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Dyastin-0/lanlink/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// receiverNode is a coordinator plus server answering offers with a fixed
// verdict.
func receiverNode(t *testing.T, id string, accept bool) (*Coordinator, int, string) {
	t.Helper()

	root := t.TempDir()
	c := newTestCoordinator(t, id, func(cfg *Config) {
		cfg.ReceivedRoot = func() (string, error) { return root, nil }
	})

	ch, cancel := c.Events().Subscribe(64)
	t.Cleanup(cancel)
	go func() {
		for ev := range ch {
			if ev.Type == types.EventOfferPrompt {
				c.Decide(ev.OfferID, accept)
			}
		}
	}()

	srv := NewServer(c, nil)
	require.NoError(t, srv.Start(t.Context()))

	return c, srv.Port(), root
}

func TestShareDeclined(t *testing.T) {
	receiver, port, _ := receiverNode(t, "recv-decline", false)
	sender := newTestCoordinator(t, "send-decline")

	src := filepath.Join(t.TempDir(), "Notes")
	require.NoError(t, os.MkdirAll(src, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("a"), 0644))

	result, err := sender.ShareTo(t.Context(), "127.0.0.1", port, src, "Notes")
	require.NoError(t, err)

	assert.False(t, result.OK)
	assert.True(t, result.Declined)
	require.NotNil(t, result.Peer)
	assert.Equal(t, "recv-decline", result.Peer.ID)

	assert.Equal(t, 0, sender.ActiveSends())
	assert.Equal(t, 0, receiver.ActiveReceives())
}

func TestShareAccepted(t *testing.T) {
	receiver, port, root := receiverNode(t, "recv-accept", true)
	sender := newTestCoordinator(t, "send-accept")

	recvCh, cancel := receiver.Events().Subscribe(256)
	defer cancel()

	src := filepath.Join(t.TempDir(), "Build")
	require.NoError(t, os.MkdirAll(src, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "main.ict"), []byte("engine project"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "readme.txt"), []byte("docs"), 0644))

	result, err := sender.ShareTo(t.Context(), "127.0.0.1", port, src, "Build")
	require.NoError(t, err)

	require.True(t, result.OK)
	require.NotNil(t, result.Upload)
	assert.Equal(t, "Build", result.Upload.ProjectName)

	destDir := result.Upload.DestDir
	assert.True(t, strings.HasPrefix(filepath.Base(destDir), "Build_"))
	assert.Equal(t, root, filepath.Dir(destDir))

	// Extraction recreates the directory's own nesting with both files.
	got, err := os.ReadFile(filepath.Join(destDir, "Build", "main.ict"))
	require.NoError(t, err)
	assert.Equal(t, "engine project", string(got))

	got, err = os.ReadFile(filepath.Join(destDir, "Build", "readme.txt"))
	require.NoError(t, err)
	assert.Equal(t, "docs", string(got))

	// The incoming artifact was transfer-scoped and deleted.
	_, statErr := os.Stat(filepath.Join(destDir, incomingArtifactName))
	assert.True(t, os.IsNotExist(statErr))

	// Main-file scan recognized the .ict entry file.
	require.Len(t, result.Upload.MainFiles, 1)
	assert.Equal(t, filepath.Join(destDir, "Build", "main.ict"), result.Upload.MainFiles[0])

	// Net-zero counter effect on both sides.
	assert.Equal(t, 0, sender.ActiveSends())
	assert.Equal(t, 0, receiver.ActiveReceives())

	var phases []string
	for {
		done := false
		select {
		case ev := <-recvCh:
			if ev.Type == types.EventProgress {
				phases = append(phases, ev.Progress.Phase)
			}
			if ev.Type == types.EventReceived {
				assert.Equal(t, destDir, ev.Result.DestDir)
			}
		default:
			done = true
		}
		if done {
			break
		}
	}

	assert.Contains(t, phases, PhasePrompt)
	assert.Contains(t, phases, PhaseAccepted)
	assert.Contains(t, phases, PhaseReceiving)
	assert.Contains(t, phases, PhaseExtracting)
	assert.Contains(t, phases, PhaseDone)
}

func TestShareToUnreachablePeer(t *testing.T) {
	sender := newTestCoordinator(t, "send-unreachable")

	src := filepath.Join(t.TempDir(), "x.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0644))

	// A connect failure is non-acceptance, not an error.
	result, err := sender.ShareTo(t.Context(), "127.0.0.1", 1, src, "")
	require.NoError(t, err)

	assert.True(t, result.Declined)
	assert.NotEmpty(t, result.Message)
	assert.Equal(t, 0, sender.ActiveSends())
}

func TestShareMissingSource(t *testing.T) {
	_, port, _ := receiverNode(t, "recv-missing", true)
	sender := newTestCoordinator(t, "send-missing")

	_, err := sender.ShareTo(t.Context(), "127.0.0.1", port,
		filepath.Join(t.TempDir(), "missing"), "Gone")
	require.Error(t, err)

	assert.Equal(t, 0, sender.ActiveSends())
}

func TestProjectNameDefaultsToBaseName(t *testing.T) {
	_, port, root := receiverNode(t, "recv-default", true)
	sender := newTestCoordinator(t, "send-default")

	src := filepath.Join(t.TempDir(), "MyProject")
	require.NoError(t, os.MkdirAll(src, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("a"), 0644))

	result, err := sender.ShareTo(t.Context(), "127.0.0.1", port, src, "")
	require.NoError(t, err)

	require.True(t, result.OK)
	assert.Equal(t, "MyProject", result.Upload.ProjectName)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "MyProject_"))
}
