package ports

import (
	"context"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"
)

const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// Meta describes where an opened import file came from. Format is the
// opener's guess from the file name or content type and may be empty.
type Meta struct {
	Source      string
	Name        string
	Format      string
	ContentType string
	Size        int64
	Bucket      string
	Key         string
}

type FileOpener interface {
	Open(ctx context.Context, filePath string) (io.ReadCloser, Meta, error)
}

// FormatOf guesses a sheet format from a file name, path or URL, falling back
// to the content type.
func FormatOf(name, contentType string) string {
	p := name
	if u, err := url.Parse(name); err == nil && u.Path != "" {
		p = u.Path
	}
	switch strings.ToLower(strings.TrimPrefix(path.Ext(p), ".")) {
	case FormatXLSX:
		return FormatXLSX
	case FormatCSV:
		return FormatCSV
	}
	med, _, _ := mime.ParseMediaType(contentType)
	switch med {
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return FormatXLSX
	case "text/csv", "application/csv", "text/plain":
		return FormatCSV
	}
	return ""
}
