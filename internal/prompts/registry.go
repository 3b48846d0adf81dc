package prompts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// PromptRegistry holds every version of every prompt.
type PromptRegistry struct {
	mu      sync.RWMutex
	prompts map[string][]*Prompt // ID -> versions, ascending
}

// NewPromptRegistry creates an empty prompt registry.
func NewPromptRegistry() *PromptRegistry {
	return &PromptRegistry{prompts: make(map[string][]*Prompt)}
}

// Register adds p, replacing a prompt with the same ID and version.
func (r *PromptRegistry) Register(p *Prompt) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	versions := r.prompts[p.ID]
	for i, existing := range versions {
		if existing.Version == p.Version {
			versions[i] = p
			return
		}
	}
	versions = append(versions, p)
	sort.SliceStable(versions, func(i, j int) bool {
		return compareVersions(versions[i].Version, versions[j].Version) < 0
	})
	r.prompts[p.ID] = versions
}

// Get retrieves a specific version of a prompt.
func (r *PromptRegistry) Get(id string, version PromptVersion) (*Prompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions, ok := r.prompts[id]
	if !ok {
		return nil, fmt.Errorf("prompt not found: %s", id)
	}
	for _, p := range versions {
		if p.Version == version {
			return p, nil
		}
	}
	return nil, fmt.Errorf("prompt %s version %s not found", id, version)
}

// GetLatest returns the highest non-deprecated version, or the highest
// version when all are deprecated.
func (r *PromptRegistry) GetLatest(id string) (*Prompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions := r.prompts[id]
	if len(versions) == 0 {
		return nil, fmt.Errorf("prompt not found: %s", id)
	}
	for i := len(versions) - 1; i >= 0; i-- {
		if !versions[i].Deprecated {
			return versions[i], nil
		}
	}
	return versions[len(versions)-1], nil
}

// List returns all prompt IDs in the registry, sorted.
func (r *PromptRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.prompts))
	for id := range r.prompts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadOverrides registers every *.yaml prompt in dir. A prompt without a
// version is placed one patch above the current latest so it wins.
// A missing dir is not an error.
func (r *PromptRegistry) LoadOverrides(dir string) (int, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return 0, fmt.Errorf("failed to list prompt overrides: %w", err)
	}
	sort.Strings(files)

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return 0, fmt.Errorf("failed to read prompt override: %w", err)
		}
		var p Prompt
		if err := yaml.Unmarshal(data, &p); err != nil {
			return 0, fmt.Errorf("failed to parse prompt override %s: %w", filepath.Base(f), err)
		}
		if p.ID == "" {
			return 0, fmt.Errorf("prompt override %s has no id", filepath.Base(f))
		}
		if p.Version == "" {
			p.Version = PromptV1
			if latest, err := r.GetLatest(p.ID); err == nil {
				p.Version = nextPatch(latest.Version)
			}
		}
		r.Register(&p)
	}
	return len(files), nil
}

// compareVersions compares dotted numeric versions. Missing or
// non-numeric components count as zero.
func compareVersions(a, b PromptVersion) int {
	as, bs := strings.Split(string(a), "."), strings.Split(string(b), ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		x, y := component(as, i), component(bs, i)
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return 0
}

func component(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	n, _ := strconv.Atoi(parts[i])
	return n
}

func nextPatch(v PromptVersion) PromptVersion {
	parts := strings.Split(string(v), ".")
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	parts[2] = strconv.Itoa(component(parts, 2) + 1)
	return PromptVersion(strings.Join(parts, "."))
}
