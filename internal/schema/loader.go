package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/vektah/gqlparser/v2/ast"
)

var sdlExtensions = map[string]bool{".graphql": true, ".graphqls": true, ".gql": true}

// DiscoverFiles expands roots into the SDL files they contain. A root may be
// a file or a directory, which is walked recursively. The result is sorted.
func DiscoverFiles(roots ...string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("stat schema path %q: %w", root, err)
		}
		if !info.IsDir() {
			if !seen[root] {
				seen[root] = true
				files = append(files, root)
			}
			continue
		}
		err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !sdlExtensions[filepath.Ext(d.Name())] {
				return nil
			}
			if !seen[path] {
				seen[path] = true
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk schema directory %q: %w", root, err)
		}
	}
	sort.Strings(files)
	return files, nil
}

// LoadFiles reads every SDL file under roots and builds one schema.
func LoadFiles(roots ...string) (*Schema, error) {
	files, err := DiscoverFiles(roots...)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no schema files found in %v", roots)
	}
	sources := make([]*ast.Source, 0, len(files))
	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema file %q: %w", f, err)
		}
		sources = append(sources, &ast.Source{Name: f, Input: string(content)})
	}
	return BuildFromSources(sources...)
}
