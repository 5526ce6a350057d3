package opener

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime"
	"os"
	"path/filepath"

	"creditdesk/internal/ports"
)

// LocalOpener reads seed files mounted next to the service, such as the
// initial customer and loan sheets.
type LocalOpener struct{}

func NewLocalOpener() *LocalOpener { return &LocalOpener{} }

func (LocalOpener) Open(_ context.Context, p string) (io.ReadCloser, ports.Meta, error) {
	log.Printf("[OPENER][FILE][START] path=%q", p)
	f, err := os.Open(filepath.Clean(p))
	if err != nil {
		log.Printf("[OPENER][FILE][ERR] open: %v", err)
		return nil, ports.Meta{}, fmt.Errorf("open file: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, ports.Meta{}, fmt.Errorf("stat file: %w", err)
	}
	ct := mime.TypeByExtension(filepath.Ext(p))
	log.Printf("[OPENER][FILE][OK] content_type=%q size=%d", ct, st.Size())
	return f, ports.Meta{
		Source:      "file",
		Name:        filepath.Base(p),
		Format:      ports.FormatOf(p, ct),
		ContentType: ct,
		Size:        st.Size(),
	}, nil
}
