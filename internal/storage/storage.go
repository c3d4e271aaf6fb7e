// Package storage keeps project and application attachments in a pluggable
// backend (local disk or Supabase Storage).
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"
	"time"

	"freelance-marketplace-backend/internal/errs"
	"freelance-marketplace-backend/internal/logging"
	"freelance-marketplace-backend/internal/models"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MaxFileSize = 5 << 20
	MaxFiles    = 5

	DirApplications = "applications"
	DirProjects     = "projects"
)

// AllowedTypes is the attachment allow-list.
var AllowedTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"image/jpeg",
	"image/png",
}

// Backend is where attachment bytes live.
type Backend interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}

// Store validates, names and persists uploaded attachments.
type Store struct {
	backend Backend
	now     func() time.Time
}

func New(backend Backend) *Store {
	return &Store{backend: backend, now: time.Now}
}

// SaveAll validates every file before writing any of them. If a write fails
// the files already written are removed.
func (s *Store) SaveAll(ctx context.Context, dir string, files []*multipart.FileHeader) ([]models.Attachment, error) {
	if len(files) > MaxFiles {
		return nil, errs.NewInvalidField("attachments", fmt.Sprintf("At most %d attachments are allowed", MaxFiles))
	}

	type upload struct {
		header   *multipart.FileHeader
		data     []byte
		mimeType string
	}
	uploads := make([]upload, 0, len(files))
	for _, fh := range files {
		data, mimeType, err := read(fh)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, upload{header: fh, data: data, mimeType: mimeType})
	}

	saved := make([]models.Attachment, 0, len(uploads))
	for _, u := range uploads {
		name := s.filename("attachments", u.header.Filename, u.mimeType)
		p := path.Join(dir, name)
		if err := s.backend.Put(ctx, p, u.data, u.mimeType); err != nil {
			s.Remove(ctx, saved)
			return nil, fmt.Errorf("failed to store %s: %w", u.header.Filename, err)
		}
		saved = append(saved, models.Attachment{
			Filename:     name,
			OriginalName: u.header.Filename,
			Path:         p,
			MimeType:     u.mimeType,
			Size:         int64(len(u.data)),
		})
	}
	return saved, nil
}

func (s *Store) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	return s.backend.Open(ctx, p)
}

// Remove deletes attachments best-effort and reports every failure.
func (s *Store) Remove(ctx context.Context, attachments []models.Attachment) error {
	var failed []error
	for _, a := range attachments {
		if err := s.backend.Delete(ctx, a.Path); err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", a.Path, err))
		}
	}
	if err := errors.Join(failed...); err != nil {
		logger := logging.Component("storage")
		logger.Warn().Err(err).Int("count", len(failed)).Msg("failed to remove attachments")
		return err
	}
	return nil
}

// filename builds "<field>-<unixmillis>-<random><ext>".
func (s *Store) filename(field, original, mimeType string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if ext == "" {
		if m := mimetype.Lookup(mimeType); m != nil {
			ext = m.Extension()
		}
	}
	return fmt.Sprintf("%s-%d-%d%s", field, s.now().UnixMilli(), rand.Int63n(1e9), ext)
}

func read(fh *multipart.FileHeader) ([]byte, string, error) {
	if fh.Size > MaxFileSize {
		return nil, "", errs.NewInvalidField("attachments", fmt.Sprintf("%s exceeds the 5MB limit", fh.Filename))
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) > MaxFileSize {
		return nil, "", errs.NewInvalidField("attachments", fmt.Sprintf("%s exceeds the 5MB limit", fh.Filename))
	}

	mimeType, ok := Validate(data, fh.Header.Get("Content-Type"))
	if !ok {
		return nil, "", errs.NewInvalidField("attachments",
			"Invalid file type. Only PDF, DOC, DOCX, PPT, PPTX, JPEG and PNG files are allowed")
	}
	return data, mimeType, nil
}

// Validate sniffs data and returns the allow-listed type it belongs to.
// Office containers that sniff as plain zip or OLE fall back to the declared
// content type when that one is allowed.
func Validate(data []byte, declared string) (string, bool) {
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		for _, allowed := range AllowedTypes {
			if m.Is(allowed) {
				return allowed, true
			}
		}
	}

	if detected.Is("application/zip") || detected.Is("application/x-ole-storage") {
		declared = strings.TrimSpace(strings.SplitN(declared, ";", 2)[0])
		for _, allowed := range AllowedTypes {
			if declared == allowed && strings.HasPrefix(allowed, "application/") && allowed != "application/pdf" {
				return allowed, true
			}
		}
	}
	return "", false
}
