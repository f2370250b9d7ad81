// Package registry maps accessor names from configuration to backend
// factories. The table is explicit; adding a backend means adding an entry.
package registry

import (
	"errors"
	"log/slog"
	"slices"
	"strings"

	"tunguska/internal/accessor"
	"tunguska/internal/accessor/edump"
	"tunguska/internal/failure"
)

// ErrUnknownAccessor is returned by Open for unregistered names.
var ErrUnknownAccessor = errors.New("unknown accessor")

// Options are handed to a factory when an event volume is opened.
type Options struct {
	// Dir is the event's data directory with placeholders already expanded.
	Dir    string
	Args   []string
	Logger *slog.Logger
}

// Factory opens one event volume.
type Factory func(opts Options) (accessor.Accessor, error)

// Accessors is the factory table.
var Accessors = map[string]Factory{
	// edump: YAML metadata plus text/zstd trace files
	edump.Name: func(opts Options) (accessor.Accessor, error) {
		eo, err := edump.ParseArgs(opts.Args)
		if err != nil {
			return nil, failure.Wrap(failure.ErrConfiguration, "registry", "parse args", edump.Name, err)
		}
		eo.Logger = opts.Logger
		acc, err := edump.Open(opts.Dir, eo)
		if err != nil {
			return nil, err
		}
		return acc, nil
	},
}

// Lookup returns the factory for name.
func Lookup(name string) (Factory, error) {
	factory, ok := Accessors[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, failure.Wrap(failure.ErrConfiguration, "registry", "lookup", name, ErrUnknownAccessor)
	}
	return factory, nil
}

// Open resolves name and opens the volume described by opts.
func Open(name string, opts Options) (accessor.Accessor, error) {
	factory, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return factory(opts)
}

// Names lists the registered accessors in sorted order.
func Names() []string {
	names := make([]string, 0, len(Accessors))
	for name := range Accessors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
