package transfer

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/Dyastin-0/lanlink/events"
	"github.com/Dyastin-0/lanlink/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdentity struct {
	id string
}

func (f *fakeIdentity) ID() string { return f.id }

func (f *fakeIdentity) LocalInfo() types.PeerInfo {
	return types.PeerInfo{
		ID:        f.id,
		Name:      "test-" + f.id,
		Hostname:  "test-" + f.id,
		Addresses: []string{"127.0.0.1"},
	}
}

func newTestCoordinator(t *testing.T, id string, opts ...func(*Config)) *Coordinator {
	t.Helper()

	root := t.TempDir()
	cfg := Config{
		Identity:     &fakeIdentity{id: id},
		ReceivedRoot: func() (string, error) { return root, nil },
		Emitter:      events.New(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return NewCoordinator(cfg)
}

func TestSanitizeProjectName(t *testing.T) {
	assert.Equal(t, "a_b_c_d", SanitizeProjectName("a/b:c*d"))
	assert.Equal(t, "a_b_c_d_e_f_g_h_i", SanitizeProjectName(`a\b:c*d?e"f<g>h|i`))
	assert.Equal(t, "Notes", SanitizeProjectName("  Notes  "))
	assert.Equal(t, "", SanitizeProjectName("   "))
}

func TestDecideResolvesAtMostOnce(t *testing.T) {
	c := newTestCoordinator(t, "r")

	ch := c.registerOffer("offer-1")

	c.Decide("offer-1", true)
	c.Decide("offer-1", false) // no-op
	c.Decide("offer-1", true)  // no-op

	select {
	case accept := <-ch:
		assert.True(t, accept)
	default:
		t.Fatal("expected a resolution")
	}

	select {
	case <-ch:
		t.Fatal("offer resolved more than once")
	default:
	}
}

func TestDecideUnknownOfferIsNoop(t *testing.T) {
	c := newTestCoordinator(t, "r")
	c.Decide("nope", true)
}

func TestCountersNeverNegative(t *testing.T) {
	c := newTestCoordinator(t, "r")

	c.decSends()
	c.decReceives()
	assert.Equal(t, 0, c.ActiveSends())
	assert.Equal(t, 0, c.ActiveReceives())

	c.incSends()
	c.decSends()
	c.decSends()
	assert.Equal(t, 0, c.ActiveSends())
}

func TestTokenRedeemableAtMostOnce(t *testing.T) {
	c := newTestCoordinator(t, "r")

	c.registerUpload("tok", &pendingUpload{
		destDir:     filepath.Join(t.TempDir(), "dest"),
		createdAt:   time.Now(),
		projectName: "Notes",
		transferID:  "t1",
	})

	pu, ok := c.takeUpload("tok")
	require.True(t, ok)
	assert.Equal(t, "Notes", pu.projectName)

	_, ok = c.takeUpload("tok")
	assert.False(t, ok)
}
