package codec

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrijs2005/wotcsync/internal/common"
	"gopkg.in/yaml.v3"
)

//go:embed layouts/*.yaml
var builtinLayouts embed.FS

// Registry holds validated layouts keyed by jurisdiction code.
type Registry struct {
	layouts map[string]*Layout
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
	defaultErr      error
)

// DefaultRegistry returns the layouts compiled into the binary.
func DefaultRegistry() (*Registry, error) {
	defaultOnce.Do(func() {
		sub, err := fs.Sub(builtinLayouts, "layouts")
		if err != nil {
			defaultErr = err
			return
		}
		defaultRegistry, defaultErr = LoadRegistry(sub)
	})
	return defaultRegistry, defaultErr
}

// LoadRegistry parses and validates every *.yaml file at the root of fsys.
// One bad schema fails the whole load.
func LoadRegistry(fsys fs.FS) (*Registry, error) {
	files, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, err
	}

	r := &Registry{layouts: make(map[string]*Layout, len(files))}
	for _, name := range files {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		l, err := ParseLayout(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path.Base(name), err)
		}
		if _, dup := r.layouts[l.Jurisdiction]; dup {
			return nil, fmt.Errorf("%s: jurisdiction %s defined twice: %w", name, l.Jurisdiction, common.ErrValidation)
		}
		r.layouts[l.Jurisdiction] = l
	}
	return r, nil
}

// ParseLayout decodes one YAML schema and validates it.
func ParseLayout(data []byte) (*Layout, error) {
	l := &Layout{}
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(l); err != nil {
		return nil, fmt.Errorf("decode layout: %v: %w", err, common.ErrValidation)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// Lookup returns the layout for a jurisdiction code (case-insensitive).
func (r *Registry) Lookup(jurisdiction string) (*Layout, error) {
	l, ok := r.layouts[strings.ToUpper(strings.TrimSpace(jurisdiction))]
	if !ok {
		return nil, fmt.Errorf("unsupported jurisdiction %q: %w", jurisdiction, common.ErrConfiguration)
	}
	return l, nil
}

// Jurisdictions lists registered codes in sorted order.
func (r *Registry) Jurisdictions() []string {
	out := make([]string, 0, len(r.layouts))
	for code := range r.layouts {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// EncoderFor returns the encoder matching the layout's format.
func (r *Registry) EncoderFor(jurisdiction string) (Encoder, error) {
	l, err := r.Lookup(jurisdiction)
	if err != nil {
		return nil, err
	}
	return NewEncoder(l), nil
}
