package handler

import (
	"github.com/labstack/echo/v4"

	"basera/internal/infrastructure/storage"
	"basera/pkg/errors"
	"basera/pkg/response"
)

type FileHandler struct {
	storageClient *storage.CloudStorageClient
}

func NewFileHandler(storageClient *storage.CloudStorageClient) *FileHandler {
	return &FileHandler{
		storageClient: storageClient,
	}
}

const maxImageSize = 10 << 20 // 10 MB

// UploadImage accepts a multipart image and returns its public URL. The URL
// is then referenced from listing images or chat image messages.
func (h *FileHandler) UploadImage(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.Error(c, errors.BadRequest("A file is required", err))
	}
	if fileHeader.Size > maxImageSize {
		return response.Error(c, errors.BadRequest("File exceeds the 10 MB limit", nil))
	}

	folder := c.FormValue("folder")
	if folder != "chat" {
		folder = "listings"
	}

	file, err := fileHeader.Open()
	if err != nil {
		return response.Error(c, errors.Internal("Failed to read uploaded file", err))
	}
	defer file.Close()

	url, err := h.storageClient.UploadImage(c.Request().Context(), file, fileHeader.Filename, folder)
	if err != nil {
		return response.Error(c, errors.Internal("Failed to store uploaded file", err))
	}

	return response.Created(c, map[string]string{"url": url})
}
