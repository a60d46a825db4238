package transfer

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Dyastin-0/lanlink/archive"
	"github.com/Dyastin-0/lanlink/types"
	"github.com/google/uuid"
)

// ShareTo runs the sender role end to end: offer, wait for the verdict, zip
// the source, stream it to the upload URL. A decline (including a network
// failure or non-JSON reply, which count as non-acceptance) is a normal
// outcome and returns a ShareResult with Declined set; only local failures
// return an error.
func (c *Coordinator) ShareTo(ctx context.Context, host string, port int, srcPath, projectName string) (*types.ShareResult, error) {
	if projectName == "" {
		projectName = filepath.Base(filepath.Clean(srcPath))
	}

	transferID := uuid.NewString()
	peerLabel := net.JoinHostPort(host, strconv.Itoa(port))
	log := c.cfg.Log.WithStr("transferId", transferID).WithStr("project", projectName)

	c.incSends()
	defer c.decSends()

	progress := func(phase string, bytes, total int64, msg string) {
		c.emitProgress(types.Progress{
			Role:        RoleSend,
			Phase:       phase,
			TransferID:  transferID,
			ProjectName: projectName,
			PeerLabel:   peerLabel,
			Bytes:       bytes,
			Total:       total,
			Message:     msg,
		})
	}

	progress(PhaseOffering, 0, 0, "")

	offer := &types.OfferRequest{
		Sender:      c.cfg.Identity.LocalInfo(),
		ProjectName: projectName,
	}

	resp, err := c.postOffer(ctx, fmt.Sprintf("http://%s/lan/offer", peerLabel), offer)
	if err != nil {
		log.WithErr(err).Warn("offer failed")
		progress(PhaseDeclined, 0, 0, err.Error())

		return &types.ShareResult{Declined: true, Message: err.Error()}, nil
	}

	if resp.Receiver != nil {
		peerLabel = resp.Receiver.Label()
	}

	if !resp.Accept || resp.UploadURL == "" {
		progress(PhaseDeclined, 0, 0, resp.Message)

		return &types.ShareResult{
			Declined: true,
			Message:  resp.Message,
			Peer:     resp.Receiver,
		}, nil
	}

	progress(PhaseAccepted, 0, 0, "")
	progress(PhaseZipping, 0, 0, "")

	res, err := archive.Zip(srcPath, nil)
	if err != nil {
		log.WithErr(err).Error("failed to archive source")
		progress(PhaseError, 0, 0, err.Error())

		return nil, err
	}
	defer os.Remove(res.Path)

	progress(PhaseUploading, 0, res.TotalBytes, "")

	// Byte counts reflect local read progress, not confirmed remote receipt.
	result, err := c.upload(ctx, resp.UploadURL, res.Path, func(n int64) {
		progress(PhaseUploading, n, res.TotalBytes, "")
	})
	if err != nil {
		log.WithErr(err).Error("upload failed")
		progress(PhaseError, 0, res.TotalBytes, err.Error())

		return nil, err
	}

	if !result.OK {
		progress(PhaseError, res.TotalBytes, res.TotalBytes, result.Error)

		return &types.ShareResult{
			Message: result.Error,
			Peer:    resp.Receiver,
			Upload:  result,
		}, fmt.Errorf("upload rejected: %s", result.Error)
	}

	progress(PhaseDone, res.TotalBytes, res.TotalBytes, "")
	log.Info("transfer sent")

	return &types.ShareResult{OK: true, Peer: resp.Receiver, Upload: result}, nil
}
