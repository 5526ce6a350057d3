package handlers

import (
	"fmt"
	"net/http"
	"path"
	"time"

	importitems "creditdesk/internal/repository/imports"

	"github.com/minio/minio-go/v7"
)

const maxUploadBytes = 128 << 20

// Upload accepts multipart/form-data with `file` and `type` fields, stores
// the file in S3 and creates an import_records entry in Mongo.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.Logger.Printf("[UPLOAD][ERR] parse multipart: %v", err)
		h.Error(w, http.StatusBadRequest, "bad multipart: "+err.Error())
		return
	}

	typ := r.FormValue("type")
	if typ == "" {
		typ = r.FormValue("action")
	}
	modelType, ok := importitems.ParseModelType(typ)
	if !ok {
		h.Error(w, http.StatusBadRequest, "type must be customers or loans")
		return
	}

	f, fh, err := r.FormFile("file")
	if err != nil {
		h.Logger.Printf("[UPLOAD][ERR] missing file: %v", err)
		h.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer f.Close()

	if h.S3 == nil || h.S3.Client == nil || h.Mongo == nil {
		h.Error(w, http.StatusServiceUnavailable, "storage not configured")
		return
	}

	fname := path.Base(fh.Filename)
	key := fmt.Sprintf("imports/%s/%d-%s", typ, time.Now().UnixNano(), fname)

	size := fh.Size
	if size <= 0 {
		size = -1
	}

	info, err := h.S3.Client.PutObject(r.Context(), h.S3.Bucket, key, f, size, minio.PutObjectOptions{ContentType: fh.Header.Get("Content-Type")})
	if err != nil {
		h.Logger.Printf("[UPLOAD][ERR] s3 put: %v", err)
		h.Error(w, http.StatusInternalServerError, "failed to store file: "+err.Error())
		return
	}

	rec := importitems.NewUploadRecord(modelType, h.S3.Bucket, key, info.Size)
	ins, err := importitems.InsertImportRecord(r.Context(), h.Mongo, rec)
	if err != nil {
		h.Logger.Printf("[UPLOAD][ERR] db insert: %v", err)
		h.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.Logger.Printf("[UPLOAD][OK] type=%s path=%s size=%d", modelType, rec.Path, info.Size)
	h.JSON(w, http.StatusCreated, map[string]any{"id": ins.InsertedID, "type": modelType, "path": rec.Path})
}
