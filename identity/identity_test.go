package identity

import (
	"path/filepath"
	"testing"

	"github.com/Dyastin-0/lanlink/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *settings.Store {
	t.Helper()
	return settings.NewStore(filepath.Join(t.TempDir(), "settings.json"))
}

func TestInstanceID(t *testing.T) {
	r := New("1.0.0", newStore(t), nil)

	require.NotEmpty(t, r.ID())

	info := r.LocalInfo()
	assert.Equal(t, r.ID(), info.ID)
	assert.Equal(t, r.ID(), r.LocalInfo().ID, "instance id is stable across calls")
}

func TestPortZeroWhenUnbound(t *testing.T) {
	r := New("1.0.0", newStore(t), nil)
	assert.Equal(t, 0, r.LocalInfo().Port)

	r = New("1.0.0", newStore(t), func() int { return 4242 })
	assert.Equal(t, 4242, r.LocalInfo().Port)
}

func TestNameDisclosureGating(t *testing.T) {
	st := newStore(t)

	// Constructed directly so the async platform resolution cannot race
	// with the injected names.
	r := &Resolver{
		id:          "gating-test",
		version:     "1.0.0",
		settings:    st,
		loginName:   "jdoe",
		displayName: "Jane Doe",
	}

	info := r.LocalInfo()
	assert.Equal(t, info.Hostname, info.Name, "defaults to host name only")
	assert.Empty(t, info.DisplayName)
	assert.Empty(t, info.LoginName)

	require.NoError(t, st.Save(settings.LAN{BroadcastDisplayName: true, BroadcastLoginName: true}))

	info = r.LocalInfo()
	assert.Equal(t, "Jane Doe", info.Name)
	assert.Equal(t, "Jane Doe", info.DisplayName)
	assert.Equal(t, "jdoe", info.LoginName)
}

func TestPlatformFields(t *testing.T) {
	r := New("2.0.0", newStore(t), nil)

	info := r.LocalInfo()
	assert.NotEmpty(t, info.Platform)
	assert.NotEmpty(t, info.Arch)
	assert.Equal(t, "2.0.0", info.Version)
	assert.NotEmpty(t, info.Hostname)
}
