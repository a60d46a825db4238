// Package identity computes the node's advertised PeerInfo.
package identity

import (
	"fmt"
	"net"
	"os"
	"runtime"
	"sync"

	"github.com/Dyastin-0/lanlink/settings"
	"github.com/Dyastin-0/lanlink/types"
	"github.com/google/uuid"
)

// PortProvider reports the transport server's bound port, 0 if not bound yet.
type PortProvider func() int

type Resolver struct {
	id       string
	version  string
	settings *settings.Store
	port     PortProvider

	mu          sync.RWMutex
	loginName   string
	displayName string
}

// New generates the per-process instance id and kicks off the asynchronous
// user-name resolution. Until that finishes LocalInfo falls back to the host
// name.
func New(version string, st *settings.Store, port PortProvider) *Resolver {
	r := &Resolver{
		id:       uuid.NewString(),
		version:  version,
		settings: st,
		port:     port,
	}

	go r.resolveNames()

	return r
}

func (r *Resolver) ID() string {
	return r.id
}

func (r *Resolver) resolveNames() {
	login, display, err := resolveUserNames()
	if err != nil {
		return
	}

	r.mu.Lock()
	r.loginName = login
	r.displayName = display
	r.mu.Unlock()
}

// LocalInfo builds a fresh identity snapshot. It never fails; any resolution
// error degrades to the host name.
func (r *Resolver) LocalInfo() types.PeerInfo {
	hn := hostname()

	r.mu.RLock()
	login, display := r.loginName, r.displayName
	r.mu.RUnlock()

	lan := r.settings.LAN()

	info := types.PeerInfo{
		ID:        r.id,
		Name:      hn,
		Hostname:  hn,
		Platform:  runtime.GOOS,
		Arch:      runtime.GOARCH,
		Version:   r.version,
		Addresses: localAddresses(),
	}

	if r.port != nil {
		info.Port = r.port()
	}

	if lan.BroadcastDisplayName && display != "" {
		info.Name = display
		info.DisplayName = display
	}

	if lan.BroadcastLoginName && login != "" {
		info.LoginName = login
	}

	return info
}

func hostname() string {
	hn, err := os.Hostname()
	if err != nil {
		hn = fmt.Sprintf("%s-%s", "unknown", uuid.NewString())
	}
	return hn
}

func localAddresses() []string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}

	var out []string
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
			out = append(out, ipnet.IP.String())
		}
	}

	return out
}
