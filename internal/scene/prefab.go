package scene

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
)

var ErrInvalidPrefabPath = errors.New("invalid prefab path")

// Library loads prefab documents from one directory and caches them by
// path. Paths must stay inside the directory.
type Library struct {
	dir string

	mu   sync.Mutex
	docs map[string]*Document
}

func NewLibrary(dir string) *Library {
	return &Library{dir: dir, docs: make(map[string]*Document)}
}

// Load returns the prefab at path, relative to the library directory.
func (l *Library) Load(path string) (*Document, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if !filepath.IsLocal(clean) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPrefabPath, path)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if doc, ok := l.docs[clean]; ok {
		return doc, nil
	}
	doc, err := Load(filepath.Join(l.dir, clean))
	if err != nil {
		return nil, fmt.Errorf("prefab %q: %w", path, err)
	}
	l.docs[clean] = doc
	return doc, nil
}

// Forget drops every cached document so the next Load rereads the files.
func (l *Library) Forget() {
	l.mu.Lock()
	clear(l.docs)
	l.mu.Unlock()
}

// Instance copies nodes for one more instantiation. Persistent ids are
// cleared so every instance gets fresh ones.
func Instance(nodes []Node) []Node {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		n.PersistentID = ""
		if n.Components != nil {
			comps := make(map[string]map[string]any, len(n.Components))
			for t, f := range n.Components {
				comps[t] = f
			}
			n.Components = comps
		}
		n.Children = Instance(n.Children)
		out[i] = n
	}
	return out
}
