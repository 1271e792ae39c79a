package formdef

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-hitasforms/pkg/model"
)

//go:embed forms/*.yaml
var builtinForms embed.FS

// Registry holds compiled form schemas by name.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]schemaEntry
}

type schemaEntry struct {
	source string
	schema model.FormSchema
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]schemaEntry)}
}

// Builtin returns a registry preloaded with the Hitas forms shipped with the
// module.
func Builtin() (*Registry, error) {
	r := NewRegistry()
	if err := r.Load(builtinForms, "forms"); err != nil {
		return nil, err
	}
	return r, nil
}

// Load parses every .yaml/.yml file in dir. A later file with the same form
// name replaces the earlier one, which lets a directory override builtins.
func (r *Registry) Load(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return definitionError("", fmt.Errorf("read %s: %w", dir, err))
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(path.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		file := path.Join(dir, entry.Name())
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return definitionError("", fmt.Errorf("read %s: %w", file, err))
		}
		schema, err := Parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		r.mu.Lock()
		r.schemas[schema.Name] = schemaEntry{source: file, schema: schema}
		r.mu.Unlock()
	}
	return nil
}

// Add registers a schema built elsewhere, for example derived from an
// OpenAPI document. It replaces a schema of the same name.
func (r *Registry) Add(schema model.FormSchema, source string) error {
	if strings.TrimSpace(schema.Name) == "" {
		return definitionError("", fmt.Errorf("name is required"))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[schema.Name] = schemaEntry{source: source, schema: schema}
	return nil
}

// Get returns the schema registered under name.
func (r *Registry) Get(name string) (model.FormSchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.schemas[name]
	if !ok {
		return model.FormSchema{}, fmt.Errorf("formdef: form %q not found", name)
	}
	return entry.schema, nil
}

// Source returns the file a schema was loaded from.
func (r *Registry) Source(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.schemas[name].source
}

// Names returns the registered form names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
