package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/vanderheijden86/pricescope/pkg/model"
)

// WorkspaceDirName is the per-workspace directory holding fixtures and state.
const WorkspaceDirName = ".pscope"

// Workspace locates the files of one pricing workspace.
type Workspace struct {
	Root string // directory containing .pscope/
}

// Dir is the .pscope directory.
func (w Workspace) Dir() string { return filepath.Join(w.Root, WorkspaceDirName) }

// StateDir holds machine-local files that are not committed.
func (w Workspace) StateDir() string { return filepath.Join(w.Dir(), "state") }

// FixtureDir holds the hierarchy fixture files.
func (w Workspace) FixtureDir() string { return w.Dir() }

// HierarchyFixture is the fixture path of a dimension.
func (w Workspace) HierarchyFixture(d model.Dimension) string {
	return filepath.Join(w.Dir(), d.Plural()+".json")
}

// GroupsPath is the groups fixture.
func (w Workspace) GroupsPath() string { return filepath.Join(w.Dir(), "groups.yaml") }

// CachePath is the sqlite payload cache.
func (w Workspace) CachePath() string { return filepath.Join(w.StateDir(), "cache.db") }

// TreeStatePath is the persisted expansion state.
func (w Workspace) TreeStatePath() string { return filepath.Join(w.StateDir(), "tree-state.json") }

// Exists reports whether the .pscope directory is present.
func (w Workspace) Exists() bool {
	info, err := os.Stat(w.Dir())
	return err == nil && info.IsDir()
}

// Discover returns the workspace for dir: the nearest ancestor holding
// .pscope/, or dir itself when none is found.
func Discover(dir string) Workspace {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	if root, ok := findWorkspaceRoot(abs); ok {
		return Workspace{Root: root}
	}
	return Workspace{Root: abs}
}

// DiscoverProjects scans directories for .pscope/ subdirectories and returns
// projects found. It merges discovered projects with existing registered
// projects, preferring the registered name when a path matches.
func DiscoverProjects(cfg Config) []Project {
	seen := make(map[string]bool)
	var result []Project

	// Start with registered projects
	for _, p := range cfg.Projects {
		resolved := p.ResolvedPath()
		seen[resolved] = true
		result = append(result, p)
	}

	for _, scanPath := range cfg.Discovery.ScanPaths {
		maxDepth := cfg.Discovery.MaxDepth
		if maxDepth <= 0 {
			maxDepth = 3
		}
		for _, f := range scanForWorkspaces(scanPath, maxDepth) {
			if !seen[f] {
				seen[f] = true
				result = append(result, Project{
					Name: filepath.Base(f),
					Path: f,
				})
			}
		}
	}

	return result
}

// scanForWorkspaces walks a directory tree up to maxDepth levels deep,
// looking for directories that contain a .pscope/ subdirectory.
func scanForWorkspaces(root string, maxDepth int) []string {
	root = expandHome(root)
	var results []string

	rootDepth := strings.Count(filepath.Clean(root), string(filepath.Separator))

	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return filepath.SkipDir
		}
		if !d.IsDir() {
			return nil
		}

		currentDepth := strings.Count(filepath.Clean(path), string(filepath.Separator)) - rootDepth
		if currentDepth > maxDepth {
			return filepath.SkipDir
		}

		name := d.Name()
		if strings.HasPrefix(name, ".") && path != root {
			return filepath.SkipDir
		}

		if info, err := os.Stat(filepath.Join(path, WorkspaceDirName)); err == nil && info.IsDir() {
			results = append(results, path)
			return filepath.SkipDir // Don't recurse into workspaces
		}

		return nil
	})

	return results
}

// DetectCurrentProject attempts to find the current workspace by walking
// up from the current directory looking for .pscope/.
func DetectCurrentProject() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	return findWorkspaceRoot(dir)
}

// findWorkspaceRoot walks up from dir looking for a .pscope/ directory.
func findWorkspaceRoot(dir string) (string, bool) {
	home, _ := os.UserHomeDir()

	for {
		if info, err := os.Stat(filepath.Join(dir, WorkspaceDirName)); err == nil && info.IsDir() {
			return dir, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break // Reached filesystem root
		}
		// Don't go above home directory
		if home != "" && dir == home {
			break
		}
		dir = parent
	}
	return "", false
}
