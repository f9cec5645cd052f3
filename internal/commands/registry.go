package commands

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrUnknownCommand is returned by Resolve for a name nothing is
	// registered under.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrInteractive is returned by Resolve inside the shell for a command
	// that would start another interactive session.
	ErrInteractive = errors.New("already in a shell")
)

// Interactive is implemented by commands that take over the terminal.
// They are hidden from the shell.
type Interactive interface {
	Interactive() bool
}

func isInteractive(c Command) bool {
	i, ok := c.(Interactive)
	return ok && i.Interactive()
}

// Registry maps command names and aliases to commands.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Command // primary names and aliases, lower case
	names  []string           // primary names, sorted
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Command)}
}

// Register adds c under its name and aliases. Names are case-insensitive;
// a name or alias that is already taken is an error.
func (r *Registry) Register(c Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := append([]string{c.Name()}, c.Aliases()...)
	for i, k := range keys {
		k = strings.ToLower(k)
		if _, taken := r.byName[k]; taken {
			if i == 0 {
				return fmt.Errorf("command already registered: %s", k)
			}
			return fmt.Errorf("command alias already registered: %s", k)
		}
		keys[i] = k
	}

	for _, k := range keys {
		r.byName[k] = c
	}
	r.names = append(r.names, keys[0])
	sort.Strings(r.names)
	return nil
}

// Find looks up a command by name or alias.
func (r *Registry) Find(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[strings.ToLower(name)]
	return c, ok
}

// Resolve looks up a command typed at the shell prompt.
func (r *Registry) Resolve(name string) (Command, error) {
	c, ok := r.Find(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	if isInteractive(c) {
		return nil, ErrInteractive
	}
	return c, nil
}

// All returns every command, sorted by name.
func (r *Registry) All() []Command {
	return r.collect(func(Command) bool { return true })
}

// ShellCommands returns the commands the shell can run, sorted by name.
func (r *Registry) ShellCommands() []Command {
	return r.collect(func(c Command) bool { return !isInteractive(c) })
}

// Complete returns the shell command names and aliases starting with
// prefix, sorted. It completes the first word of a line only.
func (r *Registry) Complete(line string) []string {
	if strings.ContainsAny(line, " \t") {
		return nil
	}
	prefix := strings.ToLower(line)

	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for k, c := range r.byName {
		if strings.HasPrefix(k, prefix) && !isInteractive(c) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func (r *Registry) collect(keep func(Command) bool) []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Command, 0, len(r.names))
	for _, n := range r.names {
		if c := r.byName[n]; keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// DefaultRegistry holds the commands registered by this package's init
// functions.
var DefaultRegistry = NewRegistry()

// Register adds c to DefaultRegistry, panicking on a name clash.
func Register(c Command) {
	if err := DefaultRegistry.Register(c); err != nil {
		panic(err)
	}
}
