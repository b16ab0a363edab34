package storage

import (
	"context"
	"io"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader абстрагирует объектное хранилище аватаров. Единственная
// реализация — Cloudflare R2; nil-значение означает, что хранилище
// не настроено.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	// GetPublicURL возвращает публичный URL объекта или "" если его
	// нельзя построить.
	GetPublicURL(key string) string
}
