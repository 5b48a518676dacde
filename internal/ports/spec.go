package ports

type SeedSourcePort interface {
	LoadSeeds(path string) ([]string, error)
}

type MirrorListPort interface {
	LoadMirrors(path string) ([]string, error)
}
