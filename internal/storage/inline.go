package storage

import (
	"context"
	"encoding/base64"
	"fmt"
)

// maxInlineBytes caps artifacts kept as data URLs in the database.
const maxInlineBytes = 8 << 20

// InlineStore keeps artifacts as data URLs when no bucket is configured.
type InlineStore struct{}

func (InlineStore) Put(_ context.Context, _ string, data []byte, contentType string) (Object, error) {
	if len(data) == 0 {
		return Object{}, fmt.Errorf("no data to store")
	}
	if len(data) > maxInlineBytes {
		return Object{}, fmt.Errorf("artifact of %d bytes exceeds inline limit, configure S3", len(data))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return Object{URL: "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)}, nil
}

func (InlineStore) Delete(context.Context, string) error {
	return nil
}
