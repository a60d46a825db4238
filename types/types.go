package types

// PeerInfo is a snapshot of a node's advertised identity. It is rebuilt on
// every request because the address list and the bound transport port can
// change between calls (network transitions, late server bind).
type PeerInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	LoginName   string   `json:"loginName,omitempty"`
	DisplayName string   `json:"displayName,omitempty"`
	Hostname    string   `json:"hostname"`
	Platform    string   `json:"platform"`
	Arch        string   `json:"arch"`
	Version     string   `json:"version,omitempty"`
	Addresses   []string `json:"addresses"`
	Port        int      `json:"port"`
}

// Label returns the peer's display string for logs and events.
func (p *PeerInfo) Label() string {
	if p == nil {
		return ""
	}
	if p.Name != "" {
		return p.Name
	}
	return p.Hostname
}

// OfferRequest is a sender's proposal to transfer a named project.
type OfferRequest struct {
	Sender      PeerInfo `json:"sender"`
	ProjectName string   `json:"projectName"`
	ApproxSize  int64    `json:"approxSize,omitempty"`
}

// OfferResponse is the receiver's reply. UploadURL and Token are only set
// when the offer was accepted.
type OfferResponse struct {
	Accept    bool      `json:"accept"`
	Receiver  *PeerInfo `json:"receiver,omitempty"`
	Message   string    `json:"message,omitempty"`
	UploadURL string    `json:"uploadUrl,omitempty"`
	Token     string    `json:"token,omitempty"`
	DestLabel string    `json:"destLabel,omitempty"`
}

// UploadResult is the receiver's answer to an upload submission.
type UploadResult struct {
	OK          bool     `json:"ok"`
	Error       string   `json:"error,omitempty"`
	ProjectName string   `json:"projectName,omitempty"`
	DestDir     string   `json:"destDir,omitempty"`
	MainFiles   []string `json:"mainFiles,omitempty"`
}

// ShareResult is the sender-side terminal outcome of a share. A declined or
// timed-out offer is a normal outcome, not an error.
type ShareResult struct {
	OK       bool          `json:"ok"`
	Declined bool          `json:"declined,omitempty"`
	Message  string        `json:"message,omitempty"`
	Peer     *PeerInfo     `json:"peer,omitempty"`
	Upload   *UploadResult `json:"upload,omitempty"`
}

type EventType string

const (
	EventPeerDiscovered EventType = "peer-discovered"
	EventOfferPrompt    EventType = "incoming-offer-prompt"
	EventProgress       EventType = "transfer-progress"
	EventReceived       EventType = "transfer-received"
)

// Progress describes one step of a transfer's lifecycle. Bytes is the
// cumulative count for the current streaming phase; Total is 0 when unknown.
type Progress struct {
	Role        string `json:"role"`
	Phase       string `json:"phase"`
	TransferID  string `json:"transferId"`
	ProjectName string `json:"projectName"`
	PeerLabel   string `json:"peerLabel,omitempty"`
	Bytes       int64  `json:"bytes,omitempty"`
	Total       int64  `json:"total,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Event is the single envelope published to the presentation layer. Only the
// fields matching Type are set.
type Event struct {
	Type     EventType     `json:"type"`
	Peer     *PeerInfo     `json:"peer,omitempty"`
	OfferID  string        `json:"offerId,omitempty"`
	Offer    *OfferRequest `json:"offer,omitempty"`
	Progress *Progress     `json:"progress,omitempty"`
	Result   *UploadResult `json:"result,omitempty"`
}
