package types

import "time"

// Config is the immutable run configuration handed to the app service.
type Config struct {
	Root           string
	Architecture   string
	Repositories   []string
	Seeds          []string
	Mirrors        []string
	Workers        int
	FetchAttempts  int
	RetryDelay     time.Duration
	SkipSignatures bool
	SignMissing    bool
	LockFile       string
	SBOMFile       string
}

func (c Config) RepositoryEnabled(name string) bool {
	for _, repo := range c.Repositories {
		if repo == name {
			return true
		}
	}
	return false
}
