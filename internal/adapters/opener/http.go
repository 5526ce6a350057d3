package opener

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"path"

	"creditdesk/internal/ports"
)

// HTTPOpener downloads import sheets over http or https. Bodies larger than
// MaxBytes are refused, whether announced or streamed.
type HTTPOpener struct {
	Client   *http.Client
	MaxBytes int64
}

func NewHTTPOpener(cli *http.Client) *HTTPOpener {
	if cli == nil {
		cli = &http.Client{}
	}
	return &HTTPOpener{Client: cli, MaxBytes: DefaultMaxBytes}
}

func (h *HTTPOpener) Open(ctx context.Context, rawURL string) (io.ReadCloser, ports.Meta, error) {
	log.Printf("[OPENER][HTTP][START] url=%q", rawURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, ports.Meta{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		log.Printf("[OPENER][HTTP][ERR] do request: %v", err)
		return nil, ports.Meta{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		log.Printf("[OPENER][HTTP][ERR] status=%d", resp.StatusCode)
		return nil, ports.Meta{}, fmt.Errorf("http status %d", resp.StatusCode)
	}
	if err := checkSize(resp.ContentLength, h.MaxBytes); err != nil {
		_ = resp.Body.Close()
		return nil, ports.Meta{}, err
	}

	meta := ports.Meta{
		Source:      req.URL.Scheme,
		Name:        downloadName(resp.Header.Get("Content-Disposition"), req.URL.Path),
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
	}
	meta.Format = ports.FormatOf(meta.Name, meta.ContentType)
	log.Printf("[OPENER][HTTP][OK] name=%q format=%q size=%d", meta.Name, meta.Format, meta.Size)
	return capBody(resp.Body, h.MaxBytes), meta, nil
}

// downloadName prefers the attachment filename the server suggests.
func downloadName(disposition, urlPath string) string {
	if _, params, err := mime.ParseMediaType(disposition); err == nil && params["filename"] != "" {
		return path.Base(params["filename"])
	}
	return path.Base(urlPath)
}
