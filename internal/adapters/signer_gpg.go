package adapters

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"myrepo/internal/ports"
	"myrepo/internal/shared"
)

// GPGSignerAdapter produces detached binary signatures with the gpg binary
// and the caller's keyring.
type GPGSignerAdapter struct {
	Binary string
	Key    string
}

func NewGPGSignerAdapter(key string) GPGSignerAdapter {
	return GPGSignerAdapter{Binary: "gpg", Key: strings.TrimSpace(key)}
}

func (a GPGSignerAdapter) Sign(ctx context.Context, payload io.Reader) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	args := []string{"--batch", "--yes", "--no-tty", "--detach-sign"}
	if a.Key != "" {
		args = append(args, "--local-user", a.Key)
	}
	args = append(args, "--output", "-", "-")
	binary := a.Binary
	if binary == "" {
		binary = "gpg"
	}
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = payload
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("gpg signing failed").
			WithCause(shared.CommandError(stderr.Bytes(), err))
	}
	if stdout.Len() == 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("gpg produced an empty signature")
	}
	return stdout.Bytes(), nil
}

var _ ports.Signer = GPGSignerAdapter{}
