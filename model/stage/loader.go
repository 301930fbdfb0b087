package stage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

// Definition is the serialisable form of a registry, decodable from YAML.
type Definition struct {
	Name   string       `json:"name,omitempty" yaml:"name,omitempty"`
	Domain string       `json:"domain,omitempty" yaml:"domain,omitempty"`
	Stages []Descriptor `json:"stages" yaml:"stages"`
}

// DecodeYAML decodes a registry definition from YAML bytes.
func DecodeYAML(data []byte) (*Registry, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to decode registry: %w", err)
	}
	if def.Domain == "" {
		def.Domain = DomainLegalAid
	}
	return New(def.Domain, def.Stages...)
}

// Loader loads registry definitions from a URL through the abstract file
// system, so definitions can live on local disk, mem:// or cloud storage.
type Loader struct {
	fs afs.Service
}

// NewLoader creates a registry loader.
func NewLoader() *Loader {
	return &Loader{fs: afs.New()}
}

// Load reads and decodes the registry definition at the specified URL.  A
// missing extension defaults to .yaml.
func (l *Loader) Load(ctx context.Context, URL string) (*Registry, error) {
	if filepath.Ext(URL) == "" {
		URL += ".yaml"
	}
	data, err := l.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load registry from %s: %w", URL, err)
	}
	return DecodeYAML(data)
}
