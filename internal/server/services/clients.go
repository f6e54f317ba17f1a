// Package services implements the gateway's business logic on top of the
// repositories and the external service clients.
package services

import (
	"context"
	"io"
	"time"

	"github.com/merklebot/storage/internal/server/clients/ipfs"
)

// Client interfaces consumed by the services. The concrete implementations
// live under internal/server/clients; tests substitute fakes.

type IpfsClient interface {
	Add(ctx context.Context, name string, data io.Reader) (*ipfs.AddResult, error)
	Get(ctx context.Context, cid string) (io.ReadCloser, error)
	Pin(ctx context.Context, cid string) error
	Stat(ctx context.Context, cid string) (int64, error)
}

type InstantStorage interface {
	Put(ctx context.Context, key string, body io.Reader) error
	PresignGet(ctx context.Context, key, filename string, ttl time.Duration) (string, error)
}

type CustodyClient interface {
	CreateKey(ctx context.Context) (string, error)
	StartEncryption(ctx context.Context, originalCid, aesKey, webhookURL string) error
	StartDecryption(ctx context.Context, originalCid, aesKey, webhookURL string) error
}

type ArchiveClient interface {
	ContentAdd(ctx context.Context, cid string, fileSize int64) error
	PinAdd(ctx context.Context, cid string) error
}

// goAsync runs fn detached from the calling request. Dispatched work is not
// cancellable and must not take the request's context. Services keep this as
// a field so tests can run dispatches synchronously.
func goAsync(fn func()) {
	go fn()
}
