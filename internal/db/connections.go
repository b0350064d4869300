package db

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// DefaultAlias is the connection used when none is named.
const DefaultAlias = "default"

// ConnectionConfig holds the settings of one named connection.
type ConnectionConfig struct {
	Driver     string
	Hosts      []string
	Timeout    time.Duration
	Serializer string
	Username   string
	Password   string
	DB         int
	// Dir is the data directory for embedded drivers. Empty keeps data in memory.
	Dir string
}

// Opener creates a Backend from connection settings.
type Opener func(ctx context.Context, cfg ConnectionConfig, s Serializer) (Backend, error)

// Connections is a registry of named backend connections, opened lazily.
type Connections struct {
	mu      sync.Mutex
	drivers map[string]Opener
	configs map[string]ConnectionConfig
	open    map[string]Backend
}

// NewConnections creates an empty registry.
func NewConnections() *Connections {
	return &Connections{
		drivers: map[string]Opener{},
		configs: map[string]ConnectionConfig{},
		open:    map[string]Backend{},
	}
}

// RegisterDriver makes a driver available to Configure.
func (c *Connections) RegisterDriver(name string, o Opener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drivers[name] = o
}

// Configure declares a connection. The driver and serializer must be known.
func (c *Connections) Configure(alias string, cfg ConnectionConfig) error {
	if alias == "" {
		return errors.New("connection alias is required")
	}
	if _, err := LookupSerializer(cfg.Serializer); err != nil {
		return fmt.Errorf("connection %q: %w", alias, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.drivers[cfg.Driver]; !ok {
		return fmt.Errorf("connection %q: %w: %q", alias, ErrUnknownDriver, cfg.Driver)
	}
	c.configs[alias] = cfg
	return nil
}

// Add registers an already opened backend under alias.
func (c *Connections) Add(alias string, b Backend) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open[alias] = b
}

// Aliases returns the configured and added aliases, sorted.
func (c *Connections) Aliases() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := map[string]bool{}
	for a := range c.configs {
		seen[a] = true
	}
	for a := range c.open {
		seen[a] = true
	}
	out := make([]string, 0, len(seen))
	for a := range seen {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}

// Get returns the backend for alias, opening it on first use.
func (c *Connections) Get(ctx context.Context, alias string) (Backend, error) {
	if alias == "" {
		alias = DefaultAlias
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if b, ok := c.open[alias]; ok {
		return b, nil
	}
	cfg, ok := c.configs[alias]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConnection, alias)
	}
	s, err := LookupSerializer(cfg.Serializer)
	if err != nil {
		return nil, err
	}
	b, err := c.drivers[cfg.Driver](ctx, cfg, s)
	if err != nil {
		return nil, fmt.Errorf("open connection %q: %w", alias, err)
	}
	c.open[alias] = b
	return b, nil
}

// Close closes every opened backend.
func (c *Connections) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for alias, b := range c.open {
		if err := b.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %q: %w", alias, err))
		}
		delete(c.open, alias)
	}
	return errors.Join(errs...)
}
