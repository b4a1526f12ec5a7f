// pattern: Imperative Shell

package discovery

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// cargoManifest is the subset of Cargo.toml we care about. Version is left
// untyped because workspaces write `version.workspace = true`.
type cargoManifest struct {
	Package struct {
		Name    string `toml:"name"`
		Version any    `toml:"version"`
	} `toml:"package"`
	Workspace struct {
		Members []string `toml:"members"`
	} `toml:"workspace"`
}

// isTOML reports whether a marker name looks like a TOML manifest.
func isTOML(marker string) bool {
	return strings.HasSuffix(strings.ToLower(marker), ".toml")
}

// ParseManifest decodes the package and workspace sections of a TOML manifest.
func ParseManifest(path string) (*Manifest, error) {
	var raw cargoManifest
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("decoding manifest %s: %w", path, err)
	}

	m := &Manifest{
		PackageName:      raw.Package.Name,
		WorkspaceMembers: raw.Workspace.Members,
	}
	if v, ok := raw.Package.Version.(string); ok {
		m.Version = v
	}
	return m, nil
}
