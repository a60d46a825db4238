// Package transfer owns the offer/accept/upload lifecycle for both the
// sending and the receiving role, the pending state that binds the two wire
// legs together, and the transport server/client speaking the protocol.
package transfer

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Dyastin-0/lanlink/events"
	"github.com/Dyastin-0/lanlink/logger"
	"github.com/Dyastin-0/lanlink/types"
)

const (
	RoleSend    = "send"
	RoleReceive = "receive"

	PhaseOffering   = "offering"
	PhasePrompt     = "prompt"
	PhaseDeclined   = "declined"
	PhaseAccepted   = "accepted"
	PhaseZipping    = "zipping"
	PhaseUploading  = "uploading"
	PhaseReceiving  = "receiving"
	PhaseExtracting = "extracting"
	PhaseDone       = "done"
	PhaseError      = "error"
)

const (
	// DefaultDecisionTimeout is how long an incoming offer waits for the
	// decision collaborator before resolving as declined.
	DefaultDecisionTimeout = 60 * time.Second

	// DefaultOfferTimeout bounds the outbound offer POST.
	DefaultOfferTimeout = 15 * time.Second
)

// DefaultMainFileExts are the extensions recognized as project entry files
// when scanning a completed transfer.
var DefaultMainFileExts = []string{".ict", ".json", ".html"}

// Identity is the slice of the identity resolver the coordinator needs.
type Identity interface {
	ID() string
	LocalInfo() types.PeerInfo
}

// pendingUpload binds a single-use token to its destination. Entries are
// removed exactly once, when the matching upload is redeemed. An accepted
// offer whose sender never uploads leaves its entry behind; there is no
// expiry sweep.
type pendingUpload struct {
	destDir     string
	createdAt   time.Time
	projectName string
	transferID  string
}

type Config struct {
	Identity     Identity
	ReceivedRoot func() (string, error)
	Emitter      *events.Emitter
	Log          logger.Logger

	DecisionTimeout time.Duration
	OfferTimeout    time.Duration
	MainFileExts    []string
}

type Coordinator struct {
	cfg         Config
	offerClient *http.Client

	mu             sync.Mutex
	pendingOffers  map[string]chan bool
	pendingUploads map[string]*pendingUpload
	activeSends    int
	activeReceives int
}

func NewCoordinator(cfg Config) *Coordinator {
	if cfg.Emitter == nil {
		cfg.Emitter = events.New()
	}
	if cfg.Log == nil {
		cfg.Log = logger.Nop()
	}
	if cfg.DecisionTimeout <= 0 {
		cfg.DecisionTimeout = DefaultDecisionTimeout
	}
	if cfg.OfferTimeout <= 0 {
		cfg.OfferTimeout = DefaultOfferTimeout
	}
	if cfg.MainFileExts == nil {
		cfg.MainFileExts = DefaultMainFileExts
	}

	return &Coordinator{
		cfg:            cfg,
		offerClient:    &http.Client{Timeout: cfg.OfferTimeout},
		pendingOffers:  make(map[string]chan bool),
		pendingUploads: make(map[string]*pendingUpload),
	}
}

// Events exposes the emitter so the presentation layer can subscribe.
func (c *Coordinator) Events() *events.Emitter {
	return c.cfg.Emitter
}

// Decide resolves a pending offer. Only the first call per offer id has any
// effect; late or duplicate calls are no-ops.
func (c *Coordinator) Decide(offerID string, accept bool) {
	c.mu.Lock()
	ch, ok := c.pendingOffers[offerID]
	if ok {
		delete(c.pendingOffers, offerID)
	}
	c.mu.Unlock()

	if ok {
		ch <- accept
	}
}

func (c *Coordinator) registerOffer(offerID string) chan bool {
	ch := make(chan bool, 1)

	c.mu.Lock()
	c.pendingOffers[offerID] = ch
	c.mu.Unlock()

	return ch
}

func (c *Coordinator) registerUpload(token string, pu *pendingUpload) {
	c.mu.Lock()
	c.pendingUploads[token] = pu
	c.mu.Unlock()
}

// takeUpload redeems a token; a token is redeemable at most once.
func (c *Coordinator) takeUpload(token string) (*pendingUpload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pu, ok := c.pendingUploads[token]
	if ok {
		delete(c.pendingUploads, token)
	}

	return pu, ok
}

func (c *Coordinator) ActiveSends() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeSends
}

func (c *Coordinator) ActiveReceives() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeReceives
}

func (c *Coordinator) incSends() {
	c.mu.Lock()
	c.activeSends++
	c.mu.Unlock()
}

// decSends is floor-clamped; the counters never go negative.
func (c *Coordinator) decSends() {
	c.mu.Lock()
	if c.activeSends > 0 {
		c.activeSends--
	}
	c.mu.Unlock()
}

func (c *Coordinator) incReceives() {
	c.mu.Lock()
	c.activeReceives++
	c.mu.Unlock()
}

func (c *Coordinator) decReceives() {
	c.mu.Lock()
	if c.activeReceives > 0 {
		c.activeReceives--
	}
	c.mu.Unlock()
}

func (c *Coordinator) emitProgress(p types.Progress) {
	c.cfg.Emitter.Publish(types.Event{
		Type:     types.EventProgress,
		Progress: &p,
	})
}

var projectNameReplacer = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_",
)

// SanitizeProjectName makes a project name safe to use as a directory name
// component.
func SanitizeProjectName(name string) string {
	return strings.TrimSpace(projectNameReplacer.Replace(name))
}
