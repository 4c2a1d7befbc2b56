// Package registry resolves model identifiers to storage locations: a local
// directory or a hub repository id handed to the worker.
package registry

import (
	"errors"
	"os"
	"sort"
	"strings"
	"sync"

	"asrd/internal/common/fsutil"
)

// ErrUnknownModel is returned by Resolve for ids outside the registry when
// unlisted models are not allowed.
var ErrUnknownModel = errors.New("unknown model")

// DefaultRepo prefixes model ids that have no local override.
const DefaultRepo = "Qwen"

// Options configures a Registry.
type Options struct {
	// Models are always listed and resolvable.
	Models []string
	// Paths are explicit id -> location overrides.
	Paths map[string]string
	// Dir is scanned once by New for local model directories.
	Dir string
	// Repo is the hub namespace used when no override applies.
	Repo string
	// AllowUnlisted resolves any id to Repo/<id>.
	AllowUnlisted bool
	// LookupEnv reads MODEL_PATH_<ID> overrides; defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Registry is safe for concurrent use.
type Registry struct {
	mu            sync.RWMutex
	known         map[string]struct{}
	paths         map[string]string
	scanned       map[string]string
	repo          string
	allowUnlisted bool
	lookupEnv     func(string) (string, bool)
}

// New builds a Registry. A Dir that cannot be read is an error.
func New(o Options) (*Registry, error) {
	r := &Registry{
		known:         map[string]struct{}{},
		paths:         map[string]string{},
		scanned:       map[string]string{},
		repo:          strings.Trim(o.Repo, "/"),
		allowUnlisted: o.AllowUnlisted,
		lookupEnv:     o.LookupEnv,
	}
	if r.repo == "" {
		r.repo = DefaultRepo
	}
	if r.lookupEnv == nil {
		r.lookupEnv = os.LookupEnv
	}
	for _, id := range o.Models {
		if id = strings.TrimSpace(id); id != "" {
			r.known[id] = struct{}{}
		}
	}
	for id, p := range o.Paths {
		p, err := fsutil.ExpandHome(p)
		if err != nil {
			return nil, err
		}
		r.paths[id] = p
		r.known[id] = struct{}{}
	}
	if o.Dir != "" {
		found, err := LoadDir(o.Dir)
		if err != nil {
			return nil, err
		}
		for id, p := range found {
			r.scanned[id] = p
			r.known[id] = struct{}{}
		}
	}
	return r, nil
}

// EnvKey is the environment variable consulted for model's path override:
// MODEL_PATH_ followed by the id upper-cased with '-' and '.' as '_'.
func EnvKey(model string) string {
	k := strings.NewReplacer("-", "_", ".", "_").Replace(model)
	return "MODEL_PATH_" + strings.ToUpper(k)
}

// Resolve returns the location for model. Precedence: environment override,
// configured path, scanned directory, then Repo/<id>.
func (r *Registry) Resolve(model string) (string, error) {
	if v, ok := r.lookupEnv(EnvKey(model)); ok && strings.TrimSpace(v) != "" {
		return fsutil.ExpandHome(strings.TrimSpace(v))
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.paths[model]; ok {
		return p, nil
	}
	if p, ok := r.scanned[model]; ok {
		return p, nil
	}
	if _, ok := r.known[model]; ok || r.allowUnlisted {
		return r.repo + "/" + model, nil
	}
	return "", ErrUnknownModel
}

// Set adds or replaces an explicit path override.
func (r *Registry) Set(model, path string) {
	r.mu.Lock()
	r.paths[model] = path
	r.known[model] = struct{}{}
	r.mu.Unlock()
}

// Models returns the known model ids, sorted.
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.known))
	for id := range r.known {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
