package transfer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/Dyastin-0/lanlink/archive"
	"github.com/Dyastin-0/lanlink/types"
	"github.com/google/uuid"
)

const incomingArtifactName = "incoming.zip"

// handleOffer drives the receiver role from offer-received through the
// accept/decline decision. baseURL is the scheme://host:port the sender used
// to reach this node, so the upload URL is reachable from its side.
func (c *Coordinator) handleOffer(ctx context.Context, offer *types.OfferRequest, baseURL string) *types.OfferResponse {
	offerID := uuid.NewString()
	local := c.cfg.Identity.LocalInfo()
	peerLabel := offer.Sender.Label()

	c.incReceives()

	ch := c.registerOffer(offerID)

	c.cfg.Emitter.Publish(types.Event{
		Type:    types.EventOfferPrompt,
		OfferID: offerID,
		Offer:   offer,
	})
	c.emitProgress(types.Progress{
		Role:        RoleReceive,
		Phase:       PhasePrompt,
		TransferID:  offerID,
		ProjectName: offer.ProjectName,
		PeerLabel:   peerLabel,
	})

	accept := false
	select {
	case accept = <-ch:
	case <-time.After(c.cfg.DecisionTimeout):
		// Invalidate the pending offer so a late Decide is a no-op.
		c.Decide(offerID, false)
		select {
		case accept = <-ch:
		default:
		}
	case <-ctx.Done():
		c.Decide(offerID, false)
	}

	if !accept {
		c.emitProgress(types.Progress{
			Role:        RoleReceive,
			Phase:       PhaseDeclined,
			TransferID:  offerID,
			ProjectName: offer.ProjectName,
			PeerLabel:   peerLabel,
		})
		c.decReceives()

		return &types.OfferResponse{Accept: false, Receiver: &local}
	}

	root, err := c.cfg.ReceivedRoot()
	if err == nil {
		err = os.MkdirAll(root, 0755)
	}
	if err != nil {
		c.cfg.Log.WithErr(err).Error("failed to prepare received root")
		c.emitProgress(types.Progress{
			Role:        RoleReceive,
			Phase:       PhaseError,
			TransferID:  offerID,
			ProjectName: offer.ProjectName,
			PeerLabel:   peerLabel,
			Message:     err.Error(),
		})
		c.decReceives()

		return &types.OfferResponse{Accept: false, Receiver: &local, Message: "failed to prepare destination"}
	}

	name := SanitizeProjectName(offer.ProjectName)
	if name == "" {
		name = "project"
	}

	destDir := filepath.Join(root, fmt.Sprintf("%s_%d", name, time.Now().Unix()))
	if err := os.MkdirAll(destDir, 0755); err != nil {
		c.cfg.Log.WithErr(err).Error("failed to create destination directory")
		c.decReceives()

		return &types.OfferResponse{Accept: false, Receiver: &local, Message: "failed to prepare destination"}
	}

	token := uuid.NewString()
	c.registerUpload(token, &pendingUpload{
		destDir:     destDir,
		createdAt:   time.Now(),
		projectName: offer.ProjectName,
		transferID:  offerID,
	})

	c.emitProgress(types.Progress{
		Role:        RoleReceive,
		Phase:       PhaseAccepted,
		TransferID:  offerID,
		ProjectName: offer.ProjectName,
		PeerLabel:   peerLabel,
	})

	return &types.OfferResponse{
		Accept:    true,
		Receiver:  &local,
		UploadURL: fmt.Sprintf("%s/lan/upload?token=%s", baseURL, token),
		Token:     token,
		DestLabel: filepath.Base(destDir),
	}
}

// handleUpload drives the receiver role from receiving through extraction.
// The returned status is the HTTP code the server should answer with.
func (c *Coordinator) handleUpload(token string, body io.Reader) (*types.UploadResult, int) {
	pu, ok := c.takeUpload(token)
	if !ok {
		return &types.UploadResult{OK: false, Error: "Invalid token"}, 400
	}

	log := c.cfg.Log.WithStr("transferId", pu.transferID).WithStr("project", pu.projectName)

	progress := func(phase string, bytes int64, msg string) {
		c.emitProgress(types.Progress{
			Role:        RoleReceive,
			Phase:       phase,
			TransferID:  pu.transferID,
			ProjectName: pu.projectName,
			Bytes:       bytes,
			Message:     msg,
		})
	}

	artifact := filepath.Join(pu.destDir, incomingArtifactName)

	received, err := c.receiveArtifact(artifact, body, func(n int64) {
		progress(PhaseReceiving, n, "")
	})
	if err != nil {
		log.WithErr(err).Error("upload stream failed")
		os.Remove(artifact)
		progress(PhaseError, received, err.Error())
		c.decReceives()

		return &types.UploadResult{OK: false, Error: "upload stream failed"}, 500
	}

	progress(PhaseExtracting, received, "")

	err = archive.Unzip(artifact, pu.destDir)
	// The artifact is transfer-scoped; best-effort delete on every outcome.
	os.Remove(artifact)

	if err != nil {
		// The destination may remain partially populated; it is left in
		// place for inspection.
		log.WithErr(err).Error("extraction failed")
		progress(PhaseError, received, err.Error())
		c.decReceives()

		return &types.UploadResult{OK: false, Error: "extraction failed"}, 500
	}

	result := &types.UploadResult{
		OK:          true,
		ProjectName: pu.projectName,
		DestDir:     pu.destDir,
		MainFiles:   c.scanMainFiles(pu.destDir),
	}

	progress(PhaseDone, received, "")
	c.cfg.Emitter.Publish(types.Event{
		Type:   types.EventReceived,
		Result: result,
	})
	c.decReceives()

	log.Info("transfer received")

	return result, 200
}

func (c *Coordinator) receiveArtifact(path string, body io.Reader, onChunk func(int64)) (int64, error) {
	out, err := os.Create(path)
	if err != nil {
		return 0, err
	}

	var written int64
	buf := make([]byte, 64*1024)

	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				out.Close()
				return written, werr
			}

			written += int64(n)
			onChunk(written)
		}

		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			out.Close()
			return written, rerr
		}
	}

	return written, out.Close()
}

// scanMainFiles looks for recognized project entry files: a shallow scan of
// destDir, descending one level into a sole extracted top-level directory.
// Best-effort convenience only.
func (c *Coordinator) scanMainFiles(destDir string) []string {
	files := c.scanDir(destDir)
	if len(files) > 0 {
		return files
	}

	entries, err := os.ReadDir(destDir)
	if err != nil || len(entries) != 1 || !entries[0].IsDir() {
		return nil
	}

	return c.scanDir(filepath.Join(destDir, entries[0].Name()))
}

func (c *Coordinator) scanDir(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		if slices.Contains(c.cfg.MainFileExts, filepath.Ext(e.Name())) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}

	return files
}
