package types

// Package is one upstream package record. Values are treated as immutable
// once loaded from repository metadata.
type Package struct {
	Name           string
	Base           string
	Version        string
	Architecture   string
	Repository     string
	Filename       string
	Description    string
	Dependencies   []DependencySpec
	Provides       []DependencySpec
	Conflicts      []DependencySpec
	Replaces       []DependencySpec
	Groups         []string
	CompressedSize int64
	InstalledSize  int64
	SHA256Sum      string
	PGPSignature   string
}

// Bucket identifies one on-disk repository directory:
// <root>/<repository>/os/<architecture>/.
type Bucket struct {
	Repository   string
	Architecture string
}

func (b Bucket) String() string {
	return b.Repository + "/" + b.Architecture
}

// LocalPackageFile is a package file found on disk, described by its
// parsed filename.
type LocalPackageFile struct {
	Name         string
	Version      string
	Architecture string
	Filename     string
}
