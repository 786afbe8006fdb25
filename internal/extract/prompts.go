package extract

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/yourorg/institution-profiler/internal/institution"
	"gopkg.in/yaml.v3"
)

// eligibleFieldNames returns the sorted names of every schema field
// eligible for t, shared by BuildSystemPrompt and its registry-aware
// counterpart so both render the identical field list.
func eligibleFieldNames(t institution.Type) []string {
	var names []string
	for _, f := range institution.Schema {
		if f.Eligible(t) {
			names = append(names, f.Name)
		}
	}
	sort.Strings(names)
	return names
}

// PromptIDFieldExtraction is the operation ID for the extractor's single
// system prompt, following the teacher's per-operation prompt IDs
// (internal/ai's "column_mapping", "paste_analysis", ...).
const PromptIDFieldExtraction = "field_extraction"

// PromptFile mirrors the teacher's YAML prompt-file shape
// (internal/ai/prompt_loader.go's PromptFile) so an operator can override
// the extraction system prompt without a rebuild, e.g. to tune wording for
// a model family or add institution-type-specific guidance.
type PromptFile struct {
	Version       string `yaml:"version"`
	SchemaVersion string `yaml:"schema_version"`
	OperationID   string `yaml:"operation_id"`
	Description   string `yaml:"description"`
	SystemPrompt  string `yaml:"system_prompt"`
}

// PromptEntry is a registered prompt with its content hash, matching the
// teacher's PromptRegistry entry shape (prompt_registry.go).
type PromptEntry struct {
	ID      string
	Version string
	Content string
	Hash    string
}

// CacheVersion returns a short version+hash tag suitable for inclusion in a
// cache key, so a prompt-content change invalidates the extraction cache
// even when the operator forgot to bump Version.
func (e PromptEntry) CacheVersion() string {
	if e.Hash == "" {
		return e.Version
	}
	h := e.Hash
	if len(h) > 8 {
		h = h[:8]
	}
	return fmt.Sprintf("%s:%s", e.Version, h)
}

// PromptRegistry holds the extractor's versioned prompts, loaded from disk
// or falling back to the embedded default, guarded for concurrent phase use.
type PromptRegistry struct {
	mu      sync.RWMutex
	prompts map[string][]PromptEntry
}

// NewPromptRegistry returns an empty registry.
func NewPromptRegistry() *PromptRegistry {
	return &PromptRegistry{prompts: make(map[string][]PromptEntry)}
}

// Register adds or replaces a prompt version, computing its content hash.
func (r *PromptRegistry) Register(entry PromptEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sum := sha256.Sum256([]byte(entry.Content))
	entry.Hash = fmt.Sprintf("%x", sum[:])

	versions := r.prompts[entry.ID]
	for i, existing := range versions {
		if existing.Version == entry.Version {
			versions[i] = entry
			r.prompts[entry.ID] = versions
			return
		}
	}
	r.prompts[entry.ID] = append(versions, entry)
}

// Get returns the latest registered version for id.
func (r *PromptRegistry) Get(id string) (PromptEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	versions, ok := r.prompts[id]
	if !ok || len(versions) == 0 {
		return PromptEntry{}, false
	}
	return versions[len(versions)-1], true
}

// LoadPromptFile reads and validates a single YAML prompt file
// (spec.md §6.3's LLM capability is configuration-driven; the prompt text
// itself is one such configuration surface).
func LoadPromptFile(path string) (*PromptFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt file %s: %w", path, err)
	}
	var pf PromptFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse prompt file %s: %w", path, err)
	}
	if pf.Version == "" {
		return nil, fmt.Errorf("prompt file %s missing required field: version", path)
	}
	if pf.OperationID == "" {
		return nil, fmt.Errorf("prompt file %s missing required field: operation_id", path)
	}
	if pf.SystemPrompt == "" {
		return nil, fmt.Errorf("prompt file %s missing required field: system_prompt", path)
	}
	return &pf, nil
}

// LoadPromptsFromDirectory registers every *.yaml/*.yml file in dir.
func LoadPromptsFromDirectory(dir string, registry *PromptRegistry) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read prompts directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.HasSuffix(entry.Name(), ".yaml") && !strings.HasSuffix(entry.Name(), ".yml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		pf, err := LoadPromptFile(path)
		if err != nil {
			return err
		}
		registry.Register(PromptEntry{ID: pf.OperationID, Version: pf.Version, Content: pf.SystemPrompt})
	}
	return nil
}

// DefaultPromptRegistry returns a registry pre-loaded with the embedded
// field-extraction prompt, used when no override directory is configured.
func DefaultPromptRegistry() *PromptRegistry {
	reg := NewPromptRegistry()
	reg.Register(PromptEntry{ID: PromptIDFieldExtraction, Version: SchemaVersion, Content: systemPromptTemplate})
	return reg
}

// NewRegistryFromFiles loads YAML prompt overrides from dir (if it exists)
// and falls back to the embedded default for any operation left
// unregistered, matching the teacher's NewRegistryFromFiles fallback chain.
func NewRegistryFromFiles(dir string) (*PromptRegistry, error) {
	reg := NewPromptRegistry()
	if dir != "" {
		if _, err := os.Stat(dir); err == nil {
			if err := LoadPromptsFromDirectory(dir, reg); err != nil {
				return nil, err
			}
		}
	}
	if _, ok := reg.Get(PromptIDFieldExtraction); !ok {
		reg.Register(PromptEntry{ID: PromptIDFieldExtraction, Version: SchemaVersion, Content: systemPromptTemplate})
	}
	return reg, nil
}

// buildSystemPromptFromRegistry renders reg's field_extraction template
// (or the embedded default, if reg is nil or has no entry) with the
// sorted, type-eligible field list substituted for the template's "%s".
func buildSystemPromptFromRegistry(reg *PromptRegistry, t institution.Type) string {
	template := systemPromptTemplate
	if reg != nil {
		if entry, ok := reg.Get(PromptIDFieldExtraction); ok {
			template = entry.Content
		}
	}
	return fmt.Sprintf(template, strings.Join(eligibleFieldNames(t), ", "))
}
