package servicerequests

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/shopdesk/shopdesk/internal/querycache"
	"github.com/shopdesk/shopdesk/internal/shared"
)

// ErrFileTooLarge is returned when an upload exceeds the configured limit.
var ErrFileTooLarge = fmt.Errorf("%w: file too large", shared.ErrValidation)

// AttachmentStore keeps attachment blobs addressed by storage key.
type AttachmentStore interface {
	Save(ctx context.Context, key string, data []byte) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// DiskStore writes attachments below a root directory.
type DiskStore struct {
	root     string
	maxBytes int64
}

// NewDiskStore returns a store rooted at dir. maxBytes <= 0 disables the limit.
func NewDiskStore(dir string, maxBytes int64) *DiskStore {
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Join(os.TempDir(), "shopdesk-attachments")
	}
	return &DiskStore{root: dir, maxBytes: maxBytes}
}

// MaxBytes reports the upload limit.
func (d *DiskStore) MaxBytes() int64 { return d.maxBytes }

func (d *DiskStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("%w: invalid storage key", shared.ErrValidation)
	}
	return filepath.Join(d.root, clean), nil
}

// Save writes data under key, creating parent directories as needed.
func (d *DiskStore) Save(_ context.Context, key string, data []byte) error {
	path, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Open returns the stored file. A missing file is ErrNotFound.
func (d *DiskStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := d.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("attachment file: %w", shared.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Remove deletes the file under key. Removing a missing file is not an error.
func (d *DiskStore) Remove(_ context.Context, key string) error {
	path, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ============================================================================
// SERVICE OPERATIONS
// ============================================================================

// Attachments lists the files of a request.
func (s *Service) Attachments(ctx context.Context, id int64) ([]Attachment, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.Attachments(ctx, id)
}

// Upload stores a file for a request. The content type is sniffed from the
// bytes rather than trusted from the client.
func (s *Service) Upload(ctx context.Context, in UploadInput, body io.Reader) (*Attachment, error) {
	if s.files == nil {
		return nil, errors.New("attachment storage not configured")
	}
	if in.ServiceRequestID <= 0 {
		return nil, fmt.Errorf("%w: serviceRequestId is required", ErrValidation)
	}
	name := filepath.Base(strings.TrimSpace(in.FileName))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, fmt.Errorf("%w: file name is required", ErrValidation)
	}
	if _, err := s.repo.Get(ctx, in.ServiceRequestID); err != nil {
		return nil, err
	}

	limit := int64(-1)
	if sized, ok := s.files.(interface{ MaxBytes() int64 }); ok {
		limit = sized.MaxBytes()
	}
	var buf bytes.Buffer
	reader := body
	if limit > 0 {
		reader = io.LimitReader(body, limit+1)
	}
	n, err := buf.ReadFrom(reader)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if limit > 0 && n > limit {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, limit)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrValidation)
	}

	mt := mimetype.Detect(buf.Bytes())
	key := strconv.FormatInt(in.ServiceRequestID, 10) + "/" + uuid.NewString() + mt.Extension()
	if err := s.files.Save(ctx, key, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("store attachment: %w", err)
	}

	a := Attachment{
		ServiceRequestID:  in.ServiceRequestID,
		FileName:          name,
		ContentType:       mt.String(),
		SizeBytes:         n,
		StorageKey:        key,
		Description:       in.Description,
		IsCustomerVisible: in.IsCustomerVisible,
		UploadedBy:        actorPtr(shared.ActorFromContext(ctx)),
	}
	id, err := s.repo.InsertAttachment(ctx, a)
	if err != nil {
		_ = s.files.Remove(ctx, key)
		return nil, err
	}
	s.recordAudit(ctx, "service_request.attach", in.ServiceRequestID, map[string]any{"attachment_id": id, "file_name": a.FileName})
	s.notify.Changed(ctx, querycache.ServiceRequests)
	return s.repo.GetAttachment(ctx, in.ServiceRequestID, id)
}

// UpdateAttachment edits the description or visibility of a file.
func (s *Service) UpdateAttachment(ctx context.Context, id, attachmentID int64, req UpdateAttachmentRequest) (*Attachment, error) {
	if _, err := s.repo.GetAttachment(ctx, id, attachmentID); err != nil {
		return nil, err
	}
	if req.Description != nil || req.IsCustomerVisible != nil {
		if err := s.repo.UpdateAttachment(ctx, attachmentID, req.Description, req.IsCustomerVisible); err != nil {
			return nil, err
		}
		s.notify.Changed(ctx, querycache.ServiceRequests)
	}
	return s.repo.GetAttachment(ctx, id, attachmentID)
}

// DeleteAttachment removes the record and then the stored file.
func (s *Service) DeleteAttachment(ctx context.Context, id, attachmentID int64) error {
	a, err := s.repo.GetAttachment(ctx, id, attachmentID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteAttachment(ctx, attachmentID); err != nil {
		return err
	}
	if s.files != nil {
		if err := s.files.Remove(ctx, a.StorageKey); err != nil {
			s.logger().Warn("remove attachment file failed", slog.String("key", a.StorageKey), slog.Any("error", err))
		}
	}
	s.recordAudit(ctx, "service_request.detach", id, map[string]any{"attachment_id": attachmentID})
	s.notify.Changed(ctx, querycache.ServiceRequests)
	return nil
}

// OpenAttachment returns the metadata and content of a file.
func (s *Service) OpenAttachment(ctx context.Context, id, attachmentID int64) (*Attachment, io.ReadCloser, error) {
	if s.files == nil {
		return nil, nil, errors.New("attachment storage not configured")
	}
	a, err := s.repo.GetAttachment(ctx, id, attachmentID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.files.Open(ctx, a.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return a, rc, nil
}
