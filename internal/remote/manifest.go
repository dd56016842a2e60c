package remote

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hanpama/graphrt/internal/dispatch"
)

// Manifest declares resolvers, node loaders and checkers served by remote
// backends.
type Manifest struct {
	// Endpoints maps endpoint names to addresses.
	Endpoints map[string][]string `yaml:"endpoints"`
	Resolvers []ResolverSpec      `yaml:"resolvers"`
	Nodes     []NodeSpec          `yaml:"nodes"`
	Checkers  []CheckerSpec       `yaml:"checkers"`
}

type ResolverSpec struct {
	Coordinate    string `yaml:"coordinate"`
	Endpoint      string `yaml:"endpoint"`
	Batched       bool   `yaml:"batched"`
	Requires      string `yaml:"requires"`
	RequiresQuery string `yaml:"requires_query"`
	// Variables maps variables of the required fragments to field arguments.
	Variables map[string]string `yaml:"variables"`
}

type NodeSpec struct {
	Type     string `yaml:"type"`
	Endpoint string `yaml:"endpoint"`
	Batched  bool   `yaml:"batched"`
}

type CheckerSpec struct {
	Coordinate string `yaml:"coordinate"`
	Endpoint   string `yaml:"endpoint"`
}

// LoadManifest reads and validates a YAML manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// ParseManifest decodes a YAML manifest. Unknown keys are rejected.
func ParseManifest(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var m Manifest
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate reports every unknown endpoint and malformed coordinate.
func (m *Manifest) Validate() error {
	var errs []error
	endpoint := func(what, name string) {
		if len(m.Endpoints[name]) == 0 {
			errs = append(errs, fmt.Errorf("%s: unknown endpoint %q", what, name))
		}
	}
	for _, r := range m.Resolvers {
		c, err := dispatch.ParseCoordinate(r.Coordinate)
		if err != nil {
			errs = append(errs, err)
		} else if c.IsType() {
			errs = append(errs, fmt.Errorf("resolver %s: coordinate must name a field", r.Coordinate))
		}
		endpoint("resolver "+r.Coordinate, r.Endpoint)
	}
	for _, n := range m.Nodes {
		if n.Type == "" {
			errs = append(errs, errors.New("node: type must be set"))
		}
		endpoint("node "+n.Type, n.Endpoint)
	}
	for _, c := range m.Checkers {
		if _, err := dispatch.ParseCoordinate(c.Coordinate); err != nil {
			errs = append(errs, err)
		}
		endpoint("checker "+c.Coordinate, c.Endpoint)
	}
	return errors.Join(errs...)
}

// Provider returns a static endpoint provider over m.Endpoints.
func (m *Manifest) Provider() *StaticEndpoints {
	return NewStaticEndpoints(m.Endpoints)
}
