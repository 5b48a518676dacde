package app

import (
	"sort"
	"strings"
	"time"
)

// TempFileInfo describes a leftover temporary file in a bucket directory.
type TempFileInfo struct {
	Path    string
	ModTime time.Time
}

// PrunePlan splits temporary files into those still young enough to
// belong to a running sync and those to delete.
type PrunePlan struct {
	Keep   []TempFileInfo
	Delete []TempFileInfo
}

var tempSuffixes = []string{".part", ".tmp", ".lnk"}

// IsTempFile reports whether name is one of the hidden temporary names
// written by the executor or the index builder.
func IsTempFile(name string) bool {
	if !strings.HasPrefix(name, ".") {
		return false
	}
	for _, suffix := range tempSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func BuildPrunePlan(files []TempFileInfo, maxAge time.Duration, now time.Time) PrunePlan {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if maxAge < 0 {
		maxAge = 0
	}
	cutoff := now.Add(-maxAge)
	var plan PrunePlan
	for _, file := range files {
		if file.ModTime.After(cutoff) {
			plan.Keep = append(plan.Keep, file)
		} else {
			plan.Delete = append(plan.Delete, file)
		}
	}
	sort.Slice(plan.Delete, func(i, j int) bool { return plan.Delete[i].Path < plan.Delete[j].Path })
	sort.Slice(plan.Keep, func(i, j int) bool { return plan.Keep[i].Path < plan.Keep[j].Path })
	return plan
}
