package adapters

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"myrepo/internal/core"
	"myrepo/internal/ports"
	"myrepo/internal/types"
)

const DefaultSBOMNamespace = "https://myrepo.invalid/spdx"

// SBOMWriterAdapter writes an SPDX 2.3 JSON document listing every package
// of a resolved set. Package ids and the document namespace derive from
// the package set, so the same set and creation time give identical bytes.
type SBOMWriterAdapter struct {
	fs            afero.Fs
	NamespaceBase string
}

func NewSBOMWriterAdapter(fs afero.Fs) SBOMWriterAdapter {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return SBOMWriterAdapter{fs: fs}
}

func (a SBOMWriterAdapter) namespaceBase() string {
	if base := strings.TrimRight(strings.TrimSpace(a.NamespaceBase), "/"); base != "" {
		return base
	}
	return DefaultSBOMNamespace
}

type spdxChecksum struct {
	Algorithm     string `json:"algorithm"`
	ChecksumValue string `json:"checksumValue"`
}

type spdxExternalRef struct {
	ReferenceCategory string `json:"referenceCategory"`
	ReferenceType     string `json:"referenceType"`
	ReferenceLocator  string `json:"referenceLocator"`
}

type spdxPackage struct {
	SPDXID           string            `json:"SPDXID"`
	Name             string            `json:"name"`
	VersionInfo      string            `json:"versionInfo"`
	PackageFileName  string            `json:"packageFileName"`
	DownloadLocation string            `json:"downloadLocation"`
	FilesAnalyzed    bool              `json:"filesAnalyzed"`
	LicenseConcluded string            `json:"licenseConcluded"`
	LicenseDeclared  string            `json:"licenseDeclared"`
	Supplier         string            `json:"supplier"`
	SourceInfo       string            `json:"sourceInfo,omitempty"`
	Checksums        []spdxChecksum    `json:"checksums,omitempty"`
	ExternalRefs     []spdxExternalRef `json:"externalRefs"`
}

type spdxRelationship struct {
	SpdxElementID      string `json:"spdxElementId"`
	RelationshipType   string `json:"relationshipType"`
	RelatedSpdxElement string `json:"relatedSpdxElement"`
}

type spdxCreationInfo struct {
	Created  string   `json:"created"`
	Creators []string `json:"creators"`
}

type spdxDocument struct {
	SPDXVersion       string             `json:"spdxVersion"`
	DataLicense       string             `json:"dataLicense"`
	SPDXID            string             `json:"SPDXID"`
	Name              string             `json:"name"`
	DocumentNamespace string             `json:"documentNamespace"`
	CreationInfo      spdxCreationInfo   `json:"creationInfo"`
	Packages          []spdxPackage      `json:"packages"`
	Relationships     []spdxRelationship `json:"relationships"`
	DocumentDescribes []string           `json:"documentDescribes"`
}

// WriteSBOM renders resolved to path. createdAt is an RFC 3339 time or
// epoch seconds; empty or unparsable means now. Seeds are described by the
// document and every required-by edge becomes a DEPENDS_ON relationship.
func (a SBOMWriterAdapter) WriteSBOM(path string, createdAt string, resolved types.ResolvedSet) error {
	if strings.TrimSpace(path) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("sbom path is empty")
	}
	created := parseTimeFlexible(createdAt)
	if created.IsZero() {
		created = time.Now().UTC()
	}

	members := resolved.Members()
	sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })
	ids := make(map[string]string, len(members))
	digest := sha256.New()
	for _, pkg := range members {
		ids[pkg.Name] = spdxPackageID(pkg.Name, pkg.Version)
		fmt.Fprintf(digest, "%s@%s\n", pkg.Name, pkg.Version)
	}
	setID := hex.EncodeToString(digest.Sum(nil))[:16]

	doc := spdxDocument{
		SPDXVersion:       "SPDX-2.3",
		DataLicense:       "CC0-1.0",
		SPDXID:            "SPDXRef-DOCUMENT",
		Name:              fmt.Sprintf("myrepo %s repository", resolved.Architecture),
		DocumentNamespace: fmt.Sprintf("%s/%s-%s", a.namespaceBase(), resolved.Architecture, setID),
		CreationInfo: spdxCreationInfo{
			Created:  created.Format(time.RFC3339),
			Creators: []string{"Tool: myrepo"},
		},
		Packages:          []spdxPackage{},
		Relationships:     []spdxRelationship{},
		DocumentDescribes: []string{},
	}
	for _, pkg := range members {
		id := ids[pkg.Name]
		entry := spdxPackage{
			SPDXID:           id,
			Name:             pkg.Name,
			VersionInfo:      pkg.Version,
			PackageFileName:  core.PackageFilename(pkg),
			DownloadLocation: "NOASSERTION",
			LicenseConcluded: "NOASSERTION",
			LicenseDeclared:  "NOASSERTION",
			Supplier:         "NOASSERTION",
			ExternalRefs: []spdxExternalRef{{
				ReferenceCategory: "PACKAGE-MANAGER",
				ReferenceType:     "purl",
				ReferenceLocator:  packageURL(pkg),
			}},
		}
		if pkg.Repository != "" {
			entry.SourceInfo = "repository " + pkg.Repository
		}
		if pkg.SHA256Sum != "" {
			entry.Checksums = []spdxChecksum{{Algorithm: "SHA256", ChecksumValue: strings.ToLower(pkg.SHA256Sum)}}
		}
		doc.Packages = append(doc.Packages, entry)

		parent, ok := ids[resolved.RequiredBy[pkg.Name]]
		if !ok {
			doc.DocumentDescribes = append(doc.DocumentDescribes, id)
			doc.Relationships = append(doc.Relationships, spdxRelationship{
				SpdxElementID:      "SPDXRef-DOCUMENT",
				RelationshipType:   "DESCRIBES",
				RelatedSpdxElement: id,
			})
			continue
		}
		doc.Relationships = append(doc.Relationships, spdxRelationship{
			SpdxElementID:      parent,
			RelationshipType:   "DEPENDS_ON",
			RelatedSpdxElement: id,
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to marshal sbom payload").
			WithCause(err)
	}
	dir := filepath.Dir(path)
	if err := a.fs.MkdirAll(dir, 0o755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create sbom directory").
			WithCause(err)
	}
	tmp := filepath.Join(dir, "."+uuid.NewString()+".tmp")
	if err := afero.WriteFile(a.fs, tmp, append(data, '\n'), 0o644); err != nil {
		_ = a.fs.Remove(tmp)
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write sbom file").
			WithCause(err)
	}
	if err := a.fs.Rename(tmp, path); err != nil {
		_ = a.fs.Remove(tmp)
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to move sbom file into place").
			WithCause(err)
	}
	return nil
}

func spdxPackageID(name string, version string) string {
	seed := fmt.Sprintf("%s@%s", name, version)
	hash := sha256.Sum256([]byte(seed))
	return "SPDXRef-Package-" + hex.EncodeToString(hash[:8])
}

// packageURL renders the purl of an Arch package.
func packageURL(pkg types.Package) string {
	purl := fmt.Sprintf("pkg:alpm/arch/%s@%s", pkg.Name, pkg.Version)
	if pkg.Architecture != "" {
		purl += "?arch=" + pkg.Architecture
	}
	return purl
}

var _ ports.SBOMPort = SBOMWriterAdapter{}
