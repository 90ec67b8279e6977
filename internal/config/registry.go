// Copyright 2025 The QLever Authors.
//
// Package config implements the process-wide runtime parameter registry
// described in spec.md section 6, modeled on original_source's
// RuntimeSettings.h plus the teacher's flag/env-driven configuration
// style. There is no ambient global: main constructs exactly one Registry
// and threads it to every component that reads a tunable (Design Note:
// "Global mutable parameter registry").
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ad-freiburg/qlever-sub013/internal/memsize"
)

// OnUpdate is invoked, with the parameter's new value, after Set succeeds.
type OnUpdate func(value any)

type entry struct {
	mu       sync.RWMutex
	value    any
	onUpdate []OnUpdate
}

// Registry is the canonical home for every runtime-tunable named in
// spec.md section 6. Values are read with the typed Int/Float/Bool/Duration
// accessors below; Set triggers any registered OnUpdate callbacks.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewDefault builds a Registry pre-populated with the defaults listed in
// spec.md section 6.
func NewDefault() *Registry {
	r := &Registry{entries: make(map[string]*entry)}
	r.define("cache-max-num-entries", int64(1000))
	r.define("cache-max-size-gb", float64(30))
	r.define("cache-max-size-gb-single-entry", float64(5))
	r.define("lazy-index-scan-queue-size", int64(20))
	r.define("lazy-index-scan-num-threads", int64(10))
	r.define("lazy-index-scan-max-size-materialization", int64(1_000_000))
	r.define("sort-estimate-cancellation-factor", float64(3.0))
	r.define("websocket-updates-enabled", false)
	r.define("websocket-update-interval", 100*time.Millisecond)
	r.define("throw-on-unbound-variables", false)
	return r
}

func (r *Registry) define(name string, def any) {
	r.entries[name] = &entry{value: def}
}

func (r *Registry) get(name string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// Int returns the current value of an integer parameter.
func (r *Registry) Int(name string) int64 {
	e, ok := r.get(name)
	if !ok {
		panic("config: unknown int parameter " + name)
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.value.(int64)
}

// Float returns the current value of a float parameter.
func (r *Registry) Float(name string) float64 {
	e, ok := r.get(name)
	if !ok {
		panic("config: unknown float parameter " + name)
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.value.(float64)
}

// Bool returns the current value of a boolean parameter.
func (r *Registry) Bool(name string) bool {
	e, ok := r.get(name)
	if !ok {
		panic("config: unknown bool parameter " + name)
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.value.(bool)
}

// Duration returns the current value of a duration parameter.
func (r *Registry) Duration(name string) time.Duration {
	e, ok := r.get(name)
	if !ok {
		panic("config: unknown duration parameter " + name)
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.value.(time.Duration)
}

// CacheMaxSize returns the cache-max-size-gb parameter as a memsize.Size.
func (r *Registry) CacheMaxSize() memsize.Size {
	return memsize.Gigabytes(r.Float("cache-max-size-gb"))
}

// CacheMaxSingleEntrySize returns cache-max-size-gb-single-entry as a
// memsize.Size.
func (r *Registry) CacheMaxSingleEntrySize() memsize.Size {
	return memsize.Gigabytes(r.Float("cache-max-size-gb-single-entry"))
}

// Set updates a parameter, type-checking against its current value's type,
// and fires OnUpdate listeners.
func (r *Registry) Set(name string, value any) error {
	e, ok := r.get(name)
	if !ok {
		return fmt.Errorf("config: unknown parameter %q", name)
	}
	e.mu.Lock()
	if fmt.Sprintf("%T", e.value) != fmt.Sprintf("%T", value) {
		e.mu.Unlock()
		return fmt.Errorf("config: parameter %q expects %T, got %T", name, e.value, value)
	}
	e.value = value
	listeners := append([]OnUpdate(nil), e.onUpdate...)
	e.mu.Unlock()
	for _, cb := range listeners {
		cb(value)
	}
	return nil
}

// OnUpdate registers a callback invoked whenever the named parameter
// changes, used e.g. to resize the result cache when cache-max-size-gb
// is updated at runtime.
func (r *Registry) OnUpdate(name string, cb OnUpdate) error {
	e, ok := r.get(name)
	if !ok {
		return fmt.Errorf("config: unknown parameter %q", name)
	}
	e.mu.Lock()
	e.onUpdate = append(e.onUpdate, cb)
	e.mu.Unlock()
	return nil
}

// metaData is the shape LoadFile reads: a top-level "values" object
// mapping parameter names to values. Other top-level keys, such as the
// index statistics BuildIndex writes to <B>.meta-data.json, are ignored.
type metaData struct {
	Values map[string]json.RawMessage `json:"values"`
}

// LoadFile parses a persistent JSON config file (<B>.meta-data.json) into
// the registry, overwriting only the parameters present in the file.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	var md metaData
	if err := json.Unmarshal(data, &md); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	for name, raw := range md.Values {
		e, ok := r.get(name)
		if !ok {
			continue
		}
		e.mu.RLock()
		current := e.value
		e.mu.RUnlock()
		switch current.(type) {
		case int64:
			var v int64
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("config: parameter %q: %w", name, err)
			}
			if err := r.Set(name, v); err != nil {
				return err
			}
		case float64:
			var v float64
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("config: parameter %q: %w", name, err)
			}
			if err := r.Set(name, v); err != nil {
				return err
			}
		case bool:
			var v bool
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("config: parameter %q: %w", name, err)
			}
			if err := r.Set(name, v); err != nil {
				return err
			}
		case time.Duration:
			var ms int64
			if err := json.Unmarshal(raw, &ms); err != nil {
				return fmt.Errorf("config: parameter %q: %w", name, err)
			}
			if err := r.Set(name, time.Duration(ms)*time.Millisecond); err != nil {
				return err
			}
		}
	}
	return nil
}
