package handler

import (
	"collegemate/backend/internal/apiclient"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// formFile opens an optional uploaded file. The returned closer is never nil.
func formFile(c *gin.Context, field string) (*apiclient.File, io.Closer, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, io.NopCloser(nil), nil
	}
	if err != nil {
		return nil, io.NopCloser(nil), fmt.Errorf("%w: %v", errBadBody, err)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, io.NopCloser(nil), err
	}
	return &apiclient.File{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        f,
	}, f, nil
}

// bindJSON decodes the body into dst, reporting failures as bad requests.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}
