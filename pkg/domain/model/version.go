package model

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relgate/pkg/domain/types"
)

var versionPattern = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)$`)

// Version is a declared package version read from the manifest. It is
// immutable once parsed; the pipeline never writes it back.
type Version struct {
	Major int
	Minor int
	Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// TagName returns the registry tag name for this version
func (v Version) TagName() string {
	return "v" + v.String()
}

// Equal reports whether v and other match in all three components
func (v Version) Equal(other Version) bool {
	return v.Major == other.Major && v.Minor == other.Minor && v.Patch == other.Patch
}

// ParseVersion parses a strict X.Y.Z version string. Anything else,
// including leading "v", pre-release suffixes or whitespace, fails with
// ErrVersionMalformed.
func ParseVersion(s string) (Version, error) {
	m := versionPattern.FindStringSubmatch(s)
	if m == nil {
		return Version{}, goerr.Wrap(types.ErrVersionMalformed, "version does not match X.Y.Z", goerr.V("value", s))
	}

	// The pattern guarantees digits only, so Atoi cannot fail here
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	patch, _ := strconv.Atoi(m[3])

	return Version{Major: major, Minor: minor, Patch: patch}, nil
}

// ExtractVersion reads the declared version from manifest text. A JSON
// manifest must carry a top-level string field "version"; any other text is
// treated as a bare version file. The extracted value is validated strictly.
func ExtractVersion(manifest []byte) (Version, error) {
	text := strings.TrimSpace(string(manifest))

	if strings.HasPrefix(text, "{") {
		var doc struct {
			Version string `json:"version"`
		}
		if err := json.Unmarshal(manifest, &doc); err != nil {
			return Version{}, goerr.Wrap(types.ErrVersionMalformed, "manifest is not valid JSON", goerr.V("error", err.Error()))
		}
		return ParseVersion(doc.Version)
	}

	return ParseVersion(text)
}
