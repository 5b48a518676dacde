package app

import (
	"time"

	"github.com/spf13/afero"

	"myrepo/internal/adapters"
	"myrepo/internal/ports"
)

// MirrorFactory builds the mirror source for a run.
type MirrorFactory func(opts adapters.MirrorSourceOptions) (ports.MirrorSource, error)

// SignerFactory builds the local signer for a run, or returns nil when no
// local signing is configured.
type SignerFactory func(req SyncRequest) (ports.Signer, error)

type Service struct {
	Fs         afero.Fs
	Seeds      ports.SeedSourcePort
	MirrorList ports.MirrorListPort
	Codec      ports.IndexCodec
	Inspector  ports.PackageInspector
	Tree       ports.RepoTreePort
	Lock       ports.LockWriterPort
	SBOM       ports.SBOMPort
	NewMirror  MirrorFactory
	NewSigner  SignerFactory
	Clock      func() time.Time
}

func NewService() Service {
	return NewServiceWithFs(afero.NewOsFs())
}

// NewServiceWithFs wires every adapter onto fs.
func NewServiceWithFs(fs afero.Fs) Service {
	return Service{
		Fs:         fs,
		Seeds:      adapters.NewSeedListAdapter(fs),
		MirrorList: adapters.NewMirrorListAdapter(fs),
		Codec:      adapters.NewPacmanIndexCodec(),
		Inspector:  adapters.NewPackageInspectorAdapter(fs),
		Tree:       adapters.NewRepoTreeAdapter(fs),
		Lock:       adapters.NewLockFileAdapter(fs),
		SBOM:       adapters.NewSBOMWriterAdapter(fs),
		NewMirror: func(opts adapters.MirrorSourceOptions) (ports.MirrorSource, error) {
			if opts.Fs == nil {
				opts.Fs = fs
			}
			return adapters.NewMirrorSourceAdapter(opts)
		},
		NewSigner: func(req SyncRequest) (ports.Signer, error) {
			return newSigner(fs, req)
		},
		Clock: time.Now,
	}
}

func newSigner(fs afero.Fs, req SyncRequest) (ports.Signer, error) {
	if req.SkipSignatures || !req.SignMissing {
		return nil, nil
	}
	if req.SigningKeyFile != "" {
		return adapters.NewOpenPGPSignerAdapter(fs, req.SigningKeyFile, req.GPGKey, req.SigningPassphrase)
	}
	return adapters.NewGPGSignerAdapter(req.GPGKey), nil
}

func timeNow(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock().UTC()
}
