// pattern: Functional Core

package discovery

// Manifest is the metadata sweep can read from a TOML project manifest.
// Only the fields used for display are decoded.
type Manifest struct {
	PackageName      string   // [package] name
	Version          string   // [package] version, "" when inherited from a workspace
	WorkspaceMembers []string // [workspace] members
}

// IsWorkspace reports whether the manifest declares a workspace.
func (m *Manifest) IsWorkspace() bool {
	return m != nil && len(m.WorkspaceMembers) > 0
}

// Project is an immediate child of the root that contains the marker file.
type Project struct {
	Name         string    // Directory name
	Path         string    // Absolute path of the directory
	ManifestPath string    // Absolute path of the marker file
	Manifest     *Manifest // Decoded manifest, nil if not TOML or unreadable
	ManifestErr  error     // Why Manifest is nil for a TOML marker
}

// DisplayName prefers the package name from the manifest over the directory name.
func (p Project) DisplayName() string {
	if p.Manifest != nil && p.Manifest.PackageName != "" && p.Manifest.PackageName != p.Name {
		return p.Name + " (" + p.Manifest.PackageName + ")"
	}
	return p.Name
}
