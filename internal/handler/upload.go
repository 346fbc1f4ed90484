package handler

import (
	"errors"
	"net/http"

	"blog-service/internal/apperrors"
	"blog-service/internal/service"
)

var errBadForm = apperrors.New(apperrors.ErrInvalidInput, "invalid multipart form")

// parseForm reads a multipart form of at most maxBytes.
func parseForm(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.New(apperrors.ErrInvalidInput, "upload too large")
		}
		return errBadForm
	}
	return nil
}

// formFile returns the optional file in field. The returned closer must be
// called once the upload has been consumed.
func formFile(r *http.Request, field string) (*service.Upload, func(), error) {
	file, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, errBadForm
	}
	if hdr.Filename == "" || hdr.Size == 0 {
		file.Close()
		return nil, func() {}, nil
	}
	return &service.Upload{Filename: hdr.Filename, Size: hdr.Size, Body: file}, func() { file.Close() }, nil
}
