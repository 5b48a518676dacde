package types

// IndexRecord is one package entry of a repository index archive, in the
// field vocabulary of the pacman sync database desc/files entries.
type IndexRecord struct {
	Filename     string
	Name         string
	Base         string
	Version      string
	Description  string
	Groups       []string
	CSize        int64
	ISize        int64
	MD5Sum       string
	SHA256Sum    string
	PGPSig       string
	URL          string
	License      []string
	Arch         string
	BuildDate    int64
	Packager     string
	Replaces     []string
	Conflicts    []string
	Provides     []string
	Depends      []string
	OptDepends   []string
	MakeDepends  []string
	CheckDepends []string
	Files        []string
}

// IndexArchive describes the archives written for one bucket.
type IndexArchive struct {
	Bucket      Bucket
	DBPath      string
	FilesPath   string
	BackupPaths []string
	Records     int
}
