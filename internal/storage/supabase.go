package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	storage_go "github.com/supabase-community/storage-go"
)

// Supabase keeps attachments in a Supabase Storage bucket.
type Supabase struct {
	client *storage_go.Client
	bucket string
}

func NewSupabase(supabaseURL, serviceRoleKey, bucket string) *Supabase {
	baseURL := strings.TrimSuffix(supabaseURL, "/")
	return &Supabase{
		client: storage_go.NewClient(baseURL+"/storage/v1", serviceRoleKey, nil),
		bucket: bucket,
	}
}

func (s *Supabase) Put(ctx context.Context, p string, data []byte, contentType string) error {
	upsert := false
	_, err := s.client.UploadFile(s.bucket, p, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}
	return nil
}

// Open downloads the whole object; attachments are capped at MaxFileSize.
func (s *Supabase) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	data, err := s.client.DownloadFile(s.bucket, p)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Supabase) Delete(ctx context.Context, p string) error {
	_, err := s.client.RemoveFile(s.bucket, []string{p})
	return err
}
