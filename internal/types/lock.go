package types

// LockEntry pins one resolved package to the version and bucket it was
// synced into.
type LockEntry struct {
	Name         string `yaml:"name"`
	Version      string `yaml:"version"`
	Repository   string `yaml:"repository"`
	Architecture string `yaml:"arch"`
	Filename     string `yaml:"filename"`
	SHA256Sum    string `yaml:"sha256,omitempty"`
	RequiredBy   string `yaml:"required_by,omitempty"`
}

type LockFile struct {
	Architecture string      `yaml:"arch"`
	Repositories []string    `yaml:"repositories"`
	Packages     []LockEntry `yaml:"packages"`
}
