package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tazhibayda/places-service/internal/apperr"
	"github.com/tazhibayda/places-service/internal/log"
	"github.com/tazhibayda/places-service/internal/storage"
	"go.uber.org/zap"
)

const uploadKey = "upload.ref"

// saveImage stores the multipart "image" field and remembers its reference
// so fail can remove it again. A request without the field yields "".
func (h *Handler) saveImage(c *gin.Context) (string, error) {
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", apperr.Validation("Invalid inputs passed, please check your data.", err)
	}
	if h.MaxUploadBytes > 0 && fh.Size > h.MaxUploadBytes {
		return "", apperr.Validation("File too large.", nil)
	}

	f, err := fh.Open()
	if err != nil {
		return "", apperr.Storage("Could not read the uploaded file.", err)
	}
	defer f.Close()

	var ref string
	err = WithSpan(c.Request.Context(), "storage.save", func(ctx context.Context) error {
		var serr error
		ref, serr = h.Files.Save(ctx, fh.Header.Get("Content-Type"), f)
		return serr
	})
	if errors.Is(err, storage.ErrUnsupportedType) {
		return "", apperr.Validation("Invalid mime type!", err)
	}
	if err != nil {
		return "", apperr.Storage("Could not store the uploaded file.", err)
	}
	c.Set(uploadKey, ref)
	return ref, nil
}

// fail renders err as {"message": ...} and removes a file stored earlier in
// the same request.
func (h *Handler) fail(c *gin.Context, err error) {
	if ref := c.GetString(uploadKey); ref != "" {
		if derr := h.Files.Delete(c.Request.Context(), ref); derr != nil {
			log.WithDD(c.Request.Context(), h.Log).Warn("upload cleanup failed", zap.String("image", ref), zap.Error(derr))
		}
	}
	render(c, err)
}

// render aborts with err's status and {"message": ...}.
func render(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(apperr.StatusOf(err), gin.H{"message": apperr.MessageOf(err)})
}
