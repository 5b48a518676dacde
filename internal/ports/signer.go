package ports

import (
	"context"
	"io"
)

// Signer produces a detached binary OpenPGP signature for a payload.
type Signer interface {
	Sign(ctx context.Context, payload io.Reader) ([]byte, error)
}
