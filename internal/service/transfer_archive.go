package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tjdests/tjdests/internal/repository/ports"
)

// TransferArchive reads and writes export files, either on the local disk or,
// when a bucket is set, as objects in object storage.
type TransferArchive struct {
	storage ports.ObjectStorage
	bucket  string
}

func NewTransferArchive(storage ports.ObjectStorage, bucket string) *TransferArchive {
	return &TransferArchive{storage: storage, bucket: bucket}
}

func (a *TransferArchive) remote() bool {
	return a.storage != nil && a.bucket != ""
}

func (a *TransferArchive) Write(ctx context.Context, name string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	if a.remote() {
		return a.storage.Upload(ctx, a.bucket, name, "application/json", bytes.NewReader(data), int64(len(data)))
	}
	if err := os.WriteFile(name, data, 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return name, nil
}

func (a *TransferArchive) Read(ctx context.Context, name string, v any) error {
	if a.remote() {
		rc, err := a.storage.Download(ctx, a.bucket, name)
		if err != nil {
			return err
		}
		defer rc.Close()
		if err := json.NewDecoder(rc).Decode(v); err != nil {
			return fmt.Errorf("decode %s: %w", name, err)
		}
		return nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
