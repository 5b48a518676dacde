package types

import "sort"

// ResolvedSet maps package names to the single chosen package. Order
// keeps the insertion order of the resolver so output is deterministic.
type ResolvedSet struct {
	Architecture string
	Packages     map[string]Package
	Order        []string
	RequiredBy   map[string]string
}

func NewResolvedSet(architecture string) ResolvedSet {
	return ResolvedSet{
		Architecture: architecture,
		Packages:     map[string]Package{},
		RequiredBy:   map[string]string{},
	}
}

func (r ResolvedSet) Len() int {
	return len(r.Packages)
}

func (r ResolvedSet) Get(name string) (Package, bool) {
	pkg, ok := r.Packages[name]
	return pkg, ok
}

// Members returns the chosen packages in resolution order.
func (r ResolvedSet) Members() []Package {
	out := make([]Package, 0, len(r.Order))
	for _, name := range r.Order {
		if pkg, ok := r.Packages[name]; ok {
			out = append(out, pkg)
		}
	}
	return out
}

func (r ResolvedSet) BucketOf(pkg Package) Bucket {
	return Bucket{Repository: pkg.Repository, Architecture: r.Architecture}
}

// ByBucket groups members by destination bucket, each group sorted by name.
func (r ResolvedSet) ByBucket() map[Bucket][]Package {
	out := map[Bucket][]Package{}
	for _, pkg := range r.Packages {
		bucket := r.BucketOf(pkg)
		out[bucket] = append(out[bucket], pkg)
	}
	for bucket := range out {
		sort.Slice(out[bucket], func(i, j int) bool {
			return out[bucket][i].Name < out[bucket][j].Name
		})
	}
	return out
}
