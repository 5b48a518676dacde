package adapters

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/afero"
	"golang.org/x/crypto/openpgp"

	"myrepo/internal/ports"
)

// OpenPGPSignerAdapter signs with a private key loaded from a key file,
// without a gpg installation.
type OpenPGPSignerAdapter struct {
	entity *openpgp.Entity
}

// NewOpenPGPSignerAdapter loads an armored or binary secret key file. key
// selects an entity by key id suffix or user id substring; empty picks the
// first entity holding a private key.
func NewOpenPGPSignerAdapter(fs afero.Fs, path string, key string, passphrase string) (OpenPGPSignerAdapter, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return OpenPGPSignerAdapter{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("signing key file not found: %s", path)).
			WithCause(err)
	}
	entities, err := readKeyRing(data)
	if err != nil {
		return OpenPGPSignerAdapter{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to read signing key").
			WithCause(err)
	}
	entity := selectEntity(entities, key)
	if entity == nil {
		return OpenPGPSignerAdapter{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("no usable private key in signing key file")
	}
	if entity.PrivateKey.Encrypted {
		if err := entity.PrivateKey.Decrypt([]byte(passphrase)); err != nil {
			return OpenPGPSignerAdapter{}, errbuilder.New().
				WithCode(errbuilder.CodePermissionDenied).
				WithMsg("failed to unlock signing key").
				WithCause(err)
		}
	}
	return OpenPGPSignerAdapter{entity: entity}, nil
}

// NewOpenPGPSignerFromEntity wraps an already unlocked entity.
func NewOpenPGPSignerFromEntity(entity *openpgp.Entity) OpenPGPSignerAdapter {
	return OpenPGPSignerAdapter{entity: entity}
}

func (a OpenPGPSignerAdapter) Sign(ctx context.Context, payload io.Reader) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.entity == nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("signer has no key")
	}
	var out bytes.Buffer
	if err := openpgp.DetachSign(&out, a.entity, payload, nil); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("openpgp signing failed").
			WithCause(err)
	}
	return out.Bytes(), nil
}

func readKeyRing(data []byte) (openpgp.EntityList, error) {
	if bytes.Contains(data, []byte("-----BEGIN PGP")) {
		return openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	}
	return openpgp.ReadKeyRing(bytes.NewReader(data))
}

func selectEntity(entities openpgp.EntityList, key string) *openpgp.Entity {
	key = strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(key), "0x"))
	for _, entity := range entities {
		if entity.PrivateKey == nil {
			continue
		}
		if key == "" {
			return entity
		}
		if strings.HasSuffix(fmt.Sprintf("%X", entity.PrimaryKey.Fingerprint), key) {
			return entity
		}
		for name := range entity.Identities {
			if strings.Contains(strings.ToUpper(name), key) {
				return entity
			}
		}
	}
	return nil
}

var _ ports.Signer = OpenPGPSignerAdapter{}
