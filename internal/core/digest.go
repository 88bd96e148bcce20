package core

import (
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/hex"
	"io"
	"runtime"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"golang.org/x/sync/semaphore"
)

const digestChunkSize = 8192

// DigestEngine computes SHA-512 content digests. A counting permit
// sized to the available parallelism caps how many hash computations
// run at once, so a large number of concurrent resolution tasks
// queues here instead of thrashing every core.
type DigestEngine struct {
	permits *semaphore.Weighted
}

func NewDigestEngine() *DigestEngine {
	return &DigestEngine{
		permits: semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}
}

// Digest reads the stream in fixed-size chunks and returns the
// hex-encoded SHA-512 of its contents.
func (e *DigestEngine) Digest(ctx context.Context, r io.Reader) (string, error) {
	if err := e.permits.Acquire(ctx, 1); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("digest permit acquisition interrupted").
			WithCause(err)
	}
	defer e.permits.Release(1)

	hash := sha512.New()
	buf := make([]byte, digestChunkSize)
	if _, err := io.CopyBuffer(hash, r, buf); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read content for digest").
			WithCause(err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// DigestBytes hashes an in-memory byte slice.
func (e *DigestEngine) DigestBytes(ctx context.Context, data []byte) (string, error) {
	return e.Digest(ctx, bytes.NewReader(data))
}
