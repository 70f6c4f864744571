package handlers

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/anonto42/circles/backend/internal/apperr"
	"github.com/anonto42/circles/backend/internal/media"
	"github.com/anonto42/circles/backend/internal/middleware"
	"github.com/labstack/echo/v4"
)

const (
	maxUploadFiles = 10
	maxUploadSize  = 25 << 20
)

// MediaHandler uploads and removes the caller's media files
type MediaHandler struct {
	media media.Service
}

// NewMediaHandler creates a new MediaHandler
func NewMediaHandler(media media.Service) *MediaHandler {
	return &MediaHandler{media: media}
}

// RegisterMediaRoutes registers media routes
func (h *MediaHandler) RegisterMediaRoutes(g *echo.Group) {
	g.POST("/media", h.Upload)
	g.DELETE("/media", h.Delete)
}

// Upload stores the files of a multipart "files" field and returns their references
func (h *MediaHandler) Upload(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return apperr.BadUserInput("expected a multipart form")
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		return apperr.BadUserInput("no files uploaded")
	}
	if len(headers) > maxUploadFiles {
		return apperr.BadUserInput("at most %d files can be uploaded at once", maxUploadFiles)
	}

	files := make([]media.File, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > maxUploadSize {
			return apperr.BadUserInput("%s is larger than %d MB", fh.Filename, maxUploadSize>>20)
		}
		src, err := fh.Open()
		if err != nil {
			return err
		}
		defer src.Close()
		files = append(files, media.File{
			Name:        fh.Filename,
			Folder:      middleware.UserID(c),
			ContentType: contentType(fh, src),
			Data:        src,
		})
	}

	uploaded, err := h.media.Upload(c.Request().Context(), files)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, uploaded)
}

// contentType prefers the declared type and sniffs the first bytes otherwise.
func contentType(fh *multipart.FileHeader, src multipart.File) string {
	if ct := fh.Header.Get(echo.HeaderContentType); ct != "" {
		return ct
	}
	buf := make([]byte, 512)
	n, _ := src.Read(buf)
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "application/octet-stream"
	}
	return http.DetectContentType(buf[:n])
}

type deleteMediaRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// Delete removes media the caller uploaded and no longer references
func (h *MediaHandler) Delete(c echo.Context) error {
	var req deleteMediaRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	me := middleware.UserID(c)
	for _, id := range req.IDs {
		if !media.InFolder(id, me) {
			return apperr.Forbidden("you can only delete your own media")
		}
	}
	if err := h.media.Delete(c.Request().Context(), req.IDs); err != nil {
		return err
	}
	return message(c, "media deleted")
}
