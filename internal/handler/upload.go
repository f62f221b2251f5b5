package handler

import (
	"io"
	"mime/multipart"

	"go-rental-store/internal/apperror"
	"go-rental-store/internal/service"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const maxPhotosPerRequest = 10

var (
	errEmailPasswordRequired = apperror.Validation("email and password are required")
	errEmailRequired         = apperror.Validation("email is required")
	errFileMissing           = apperror.Validation("file is required")
	errTooManyPhotos         = apperror.Validationf("at most %d photos per request", maxPhotosPerRequest)
)

// openUploads opens the multipart files and sniffs their real content type.
// The returned closer must be called once the service is done with the bodies.
func openUploads(headers []*multipart.FileHeader) ([]service.Upload, func(), error) {
	files := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range files {
			if err := f.Close(); err != nil {
				log.Warn().Err(err).Msg("closing upload failed")
			}
		}
	}

	uploads := make([]service.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, nil, apperror.Validation("could not read uploaded file")
		}
		files = append(files, f)

		// the declared header is not trusted
		mime, err := mimetype.DetectReader(f)
		if err != nil {
			closeAll()
			return nil, nil, apperror.Validation("could not read uploaded file")
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			closeAll()
			return nil, nil, err
		}

		uploads = append(uploads, service.Upload{
			ContentType: mime.String(),
			Size:        fh.Size,
			Body:        f,
		})
	}
	return uploads, closeAll, nil
}

// formFiles returns the files sent under field, or nil when the request is not multipart
func formFiles(c *fiber.Ctx, field string) []*multipart.FileHeader {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	return form.File[field]
}
