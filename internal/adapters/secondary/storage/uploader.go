// Package storage delegates attachment payloads to the external
// object-storage upload endpoint. Attachment bytes never live in this
// service; only the returned URL is kept.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dexhq/support-chat-backend/internal/config"
	apperrors "github.com/dexhq/support-chat-backend/internal/core/errors"
	"github.com/dexhq/support-chat-backend/internal/core/ports"
)

// Uploader posts attachment payloads to the upload endpoint.
type Uploader struct {
	uploadURL string
	folder    string
	http      *http.Client
	logger    *slog.Logger
}

var _ ports.AttachmentStore = (*Uploader)(nil)

// NewUploader creates a storage uploader.
func NewUploader(cfg config.StorageConfig, logger *slog.Logger) *Uploader {
	return &Uploader{
		uploadURL: cfg.UploadURL,
		folder:    cfg.Folder,
		http:      &http.Client{Timeout: cfg.Timeout},
		logger:    logger.With("component", "storage_uploader"),
	}
}

type uploadRequest struct {
	File         string `json:"file"`
	Folder       string `json:"folder"`
	ResourceType string `json:"resourceType"`
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
}

// Upload sends the encoded payload to the storage endpoint and returns
// the public URL of the stored object.
func (u *Uploader) Upload(ctx context.Context, payload string, kind string) (string, error) {
	body, err := json.Marshal(uploadRequest{
		File:         payload,
		Folder:       u.folder,
		ResourceType: resourceType(kind),
	})
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.uploadURL, bytes.NewReader(body))
	if err != nil {
		return "", apperrors.NewDependencyError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.http.Do(req)
	if err != nil {
		u.logger.Error("attachment upload request failed", "error", err)
		return "", apperrors.NewDependencyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		u.logger.Error("attachment upload returned unexpected status", "status", resp.StatusCode)
		return "", apperrors.NewDependencyError(fmt.Errorf("storage service returned %d", resp.StatusCode))
	}

	var result uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", apperrors.NewDependencyError(err)
	}
	if result.SecureURL == "" {
		return "", apperrors.NewDependencyError(fmt.Errorf("storage service returned no url"))
	}

	return result.SecureURL, nil
}

// resourceType maps a MIME-ish attachment kind to the storage service's
// resource classes.
func resourceType(kind string) string {
	switch {
	case strings.HasPrefix(kind, "image"):
		return "image"
	case strings.HasPrefix(kind, "video"):
		return "video"
	default:
		return "raw"
	}
}
