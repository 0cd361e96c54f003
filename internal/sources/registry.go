package sources

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MrSnakeDoc/newsdesk/internal/domain"
)

// Registry holds the current list of partner sources.
// Reload swaps the list atomically; readers always see a consistent snapshot.
type Registry struct {
	loader *Loader
	mapper *Mapper

	mu         sync.RWMutex
	sources    []domain.Source
	categories []domain.Category
	lastReload time.Time
}

// NewRegistry creates a registry backed by a sources file.
func NewRegistry(filePath string) *Registry {
	return &Registry{
		loader: NewLoader(filePath),
		mapper: NewMapper(),
	}
}

// NewStaticRegistry creates a registry with a fixed list (no file behind it).
func NewStaticRegistry(list []domain.Source, cats ...domain.Category) *Registry {
	r := &Registry{mapper: NewMapper()}
	r.set(list, cats)
	return r
}

// Reload re-reads the sources file. On failure the previous list is kept.
func (r *Registry) Reload() error {
	if r.loader == nil {
		return nil
	}
	file, err := r.loader.Load()
	if err != nil {
		return err
	}
	list, cats, err := r.mapper.Map(file)
	if err != nil {
		return fmt.Errorf("invalid sources file %s: %w", r.loader.Path(), err)
	}
	r.set(list, cats)
	return nil
}

func (r *Registry) set(list []domain.Source, cats []domain.Category) {
	cp := make([]domain.Source, len(list))
	copy(cp, list)

	r.mu.Lock()
	r.sources = cp
	r.categories = cloneCategories(cats)
	r.lastReload = time.Now()
	r.mu.Unlock()
}

// Categories returns the configured feed sections in file order.
func (r *Registry) Categories() []domain.Category {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneCategories(r.categories)
}

func cloneCategories(in []domain.Category) []domain.Category {
	out := make([]domain.Category, len(in))
	for i, c := range in {
		c.Terms = append([]string(nil), c.Terms...)
		out[i] = c
	}
	return out
}

// All returns every configured source, active or not.
func (r *Registry) All() []domain.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// Active returns the sources the scheduler should scrape, in file order.
func (r *Registry) Active() []domain.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Source, 0, len(r.sources))
	for _, s := range r.sources {
		if s.Active {
			out = append(out, s)
		}
	}
	return out
}

// Get looks a source up by name (case-insensitive).
func (r *Registry) Get(name string) (domain.Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.sources {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return domain.Source{}, false
}

// Count returns the number of configured sources.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}

// LastReload returns the time of the last successful load.
func (r *Registry) LastReload() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastReload
}
