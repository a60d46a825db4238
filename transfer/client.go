package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/Dyastin-0/lanlink/types"
)

// postOffer submits an offer with a bounded timeout. Any transport failure
// or a reply that is not valid JSON surfaces as an error, which the caller
// treats as non-acceptance.
func (c *Coordinator) postOffer(ctx context.Context, url string, offer *types.OfferRequest) (*types.OfferResponse, error) {
	payload, err := json.Marshal(offer)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.offerClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out types.OfferResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("invalid offer response: %w", err)
	}

	return &out, nil
}

type countingReader struct {
	r       io.Reader
	n       int64
	onChunk func(int64)
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.n += int64(n)
		cr.onChunk(cr.n)
	}
	return n, err
}

// upload streams the archive artifact to the receiver. The content length is
// taken from the file size; the response is parsed best-effort.
func (c *Coordinator) upload(ctx context.Context, url, artifactPath string, onChunk func(int64)) (*types.UploadResult, error) {
	file, err := os.Open(artifactPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	body := io.Reader(file)
	if onChunk != nil {
		body = &countingReader{r: file, onChunk: onChunk}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.ContentLength = info.Size()

	// No bounded timeout here; uploads run as long as the stream lives.
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out := &types.UploadResult{}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		out = &types.UploadResult{
			OK: resp.StatusCode == http.StatusOK,
		}
	}

	return out, nil
}
