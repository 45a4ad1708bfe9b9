package encode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Built-in encoder kinds.
const (
	KindPattern = "pattern"
	KindJSON    = "json"
)

// Config is an encoder configuration block as it appears in YAML.
//
// Only "kind" is interpreted here; the rest of the block is kept verbatim
// and decoded strictly by the factory registered for that kind.
type Config struct {
	Kind string
	raw  []byte
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: expected a mapping", ErrInvalidConfig)
	}

	var head struct {
		Kind string `yaml:"kind"`
	}
	if err := value.Decode(&head); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	raw, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	c.Kind = head.Kind
	c.raw = raw
	return nil
}

// Decode decodes the block into out, rejecting keys out does not declare.
func (c *Config) Decode(out any) error {
	if len(c.raw) == 0 {
		return nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(c.raw))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %s encoder: %w", ErrInvalidConfig, c.Kind, err)
	}
	return nil
}

// Factory builds an encoder from its configuration block.
type Factory func(cfg *Config) (Encoder, error)

// Registry maps encoder kinds to factories.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry with the built-in pattern and json kinds.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register(KindPattern, newPatternFromConfig)
	r.Register(KindJSON, newJSONFromConfig)
	return r
}

// Register adds or replaces the factory for kind.
func (r *Registry) Register(kind string, factory Factory) {
	r.mu.Lock()
	r.factories[kind] = factory
	r.mu.Unlock()
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Build constructs the encoder described by cfg.
//
// A nil cfg yields the default pattern encoder; an empty kind means pattern.
func (r *Registry) Build(cfg *Config) (Encoder, error) {
	if cfg == nil {
		return DefaultPatternEncoder(), nil
	}

	kind := cfg.Kind
	if kind == "" {
		kind = KindPattern
	}

	r.mu.RLock()
	factory, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	return factory(cfg)
}

type patternConfig struct {
	Kind    string `yaml:"kind"`
	Pattern string `yaml:"pattern"`
}

func newPatternFromConfig(cfg *Config) (Encoder, error) {
	var pc patternConfig
	if err := cfg.Decode(&pc); err != nil {
		return nil, err
	}
	if pc.Pattern == "" {
		return DefaultPatternEncoder(), nil
	}
	return NewPatternEncoder(pc.Pattern)
}

type jsonConfig struct {
	Kind string `yaml:"kind"`
}

func newJSONFromConfig(cfg *Config) (Encoder, error) {
	var jc jsonConfig
	if err := cfg.Decode(&jc); err != nil {
		return nil, err
	}
	return NewJSONEncoder(), nil
}
