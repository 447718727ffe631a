package secure

import (
	"fmt"
	"sort"
	"sync"
)

// Env holds hydrated variables sealed until a child process is started.
type Env struct {
	mu   sync.Mutex
	vars map[string]*SecureBuffer
}

// SealEnv seals every value of vars.
func SealEnv(vars map[string]string) (*Env, error) {
	env := &Env{vars: make(map[string]*SecureBuffer, len(vars))}
	for name, value := range vars {
		buf, err := NewSecureBufferFromString(value)
		if err != nil {
			env.Destroy()
			return nil, fmt.Errorf("failed to secure %s: %w", name, err)
		}
		env.vars[name] = buf
	}
	return env, nil
}

// Names returns the sealed variable names, sorted.
func (e *Env) Names() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	names := make([]string, 0, len(e.vars))
	for name := range e.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of sealed variables.
func (e *Env) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.vars)
}

// Reveal opens every variable into a plain map.
func (e *Env) Reveal() (map[string]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]string, len(e.vars))
	for name, buf := range e.vars {
		value, err := buf.Reveal()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", name, err)
		}
		out[name] = value
	}
	return out, nil
}

// Destroy destroys every sealed variable.
func (e *Env) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, buf := range e.vars {
		buf.Destroy()
	}
	e.vars = map[string]*SecureBuffer{}
}
