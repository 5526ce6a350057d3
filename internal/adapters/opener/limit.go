package opener

import (
	"errors"
	"fmt"
	"io"
)

// DefaultMaxBytes caps a single customer or loan sheet.
const DefaultMaxBytes int64 = 256 << 20

var ErrFileTooLarge = errors.New("import file too large")

func checkSize(size, max int64) error {
	if max > 0 && size > max {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, size, max)
	}
	return nil
}

// cappedBody fails a read that would go past max bytes, for sources whose
// size is unknown up front.
type cappedBody struct {
	io.ReadCloser
	left int64
}

func capBody(rc io.ReadCloser, max int64) io.ReadCloser {
	if max <= 0 {
		return rc
	}
	return &cappedBody{ReadCloser: rc, left: max}
}

func (c *cappedBody) Read(p []byte) (int, error) {
	if c.left <= 0 {
		var extra [1]byte
		n, err := c.ReadCloser.Read(extra[:])
		if n > 0 {
			return 0, ErrFileTooLarge
		}
		return 0, err
	}
	if int64(len(p)) > c.left {
		p = p[:c.left]
	}
	n, err := c.ReadCloser.Read(p)
	c.left -= int64(n)
	return n, err
}
