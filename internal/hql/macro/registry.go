package macro

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hql-lang/hql/internal/hql/token"
)

// Registry is the process-wide Macro Registry (spec.md §3/§4.5): system
// and module-scoped macros, exports, imports, aliases, and the set of
// already-processed files. Grounded structurally on
// internal/transpiler/macro_registry.go's map-of-maps shape, replacing
// its string-substitution macro bodies with MacroDef closures over an
// Env, per spec.md §9's "treat the most recent/canonical variant" note.
type Registry struct {
	mu sync.Mutex

	systemMacros   map[string]*MacroDef
	moduleMacros   map[token.FileID]map[string]*MacroDef
	exportedMacros map[token.FileID]map[string]bool
	importedMacros map[token.FileID]map[string]token.FileID // target file -> alias-or-original -> source file
	macroAliases   map[token.FileID]map[string]string       // target file -> alias -> original
	processedFiles map[token.FileID]bool

	// lookupCache memoizes Get results. Invalidated wholesale on any
	// mutating operation — a coarse but always-safe superset of "every
	// define must invalidate the cache for that key" (spec.md §5).
	lookupCache map[cacheKey]*MacroDef
}

type cacheKey struct {
	file token.FileID
	name string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		systemMacros:   make(map[string]*MacroDef),
		moduleMacros:   make(map[token.FileID]map[string]*MacroDef),
		exportedMacros: make(map[token.FileID]map[string]bool),
		importedMacros: make(map[token.FileID]map[string]token.FileID),
		macroAliases:   make(map[token.FileID]map[string]string),
		processedFiles: make(map[token.FileID]bool),
		lookupCache:    make(map[cacheKey]*MacroDef),
	}
}

// sanitize mirrors a name between its hyphenated and underscored spelling
// per spec.md §3 invariant 2 / §9's "sanitized name mirrors" open
// question — implemented as specified (see DESIGN.md).
func sanitize(name string) string {
	if strings.Contains(name, "-") {
		return strings.ReplaceAll(name, "-", "_")
	}
	if strings.Contains(name, "_") {
		return strings.ReplaceAll(name, "_", "-")
	}
	return name
}

func (r *Registry) invalidateCache() {
	r.lookupCache = make(map[cacheKey]*MacroDef)
}

// DefineSystem registers a system-wide macro, per spec.md §4.5.
func (r *Registry) DefineSystem(name string, def *MacroDef) error {
	if name == "" {
		return newError(name, "", fmt.Errorf("empty macro name"))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.systemMacros[name] = def
	if mirror := sanitize(name); mirror != name {
		r.systemMacros[mirror] = def
	}
	r.invalidateCache()
	return nil
}

// DefineModule registers a macro scoped to file. Redefining the same
// (file, name) pair is a no-op, per spec.md §4.5.
func (r *Registry) DefineModule(file token.FileID, name string, def *MacroDef) error {
	if name == "" {
		return newError(name, "", fmt.Errorf("empty macro name"))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.moduleMacros[file] == nil {
		r.moduleMacros[file] = make(map[string]*MacroDef)
	}
	if _, exists := r.moduleMacros[file][name]; exists {
		return nil
	}
	r.moduleMacros[file][name] = def
	if mirror := sanitize(name); mirror != name {
		if _, exists := r.moduleMacros[file][mirror]; !exists {
			r.moduleMacros[file][mirror] = def
		}
	}
	r.invalidateCache()
	return nil
}

// Export marks name, previously defined in file, as exported. name must
// already be defined in file, per spec.md §4.5.
func (r *Registry) Export(file token.FileID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.moduleMacros[file][name]; !ok {
		if _, ok := r.moduleMacros[file][sanitize(name)]; !ok {
			return newError(name, "", fmt.Errorf("cannot export undefined macro %q", name))
		}
	}
	if r.exportedMacros[file] == nil {
		r.exportedMacros[file] = make(map[string]bool)
	}
	r.exportedMacros[file][name] = true
	if mirror := sanitize(name); mirror != name {
		r.exportedMacros[file][mirror] = true
	}
	r.invalidateCache()
	return nil
}

// Import records that name (available in from, optionally as alias in to)
// is visible in to. Self-import is a no-op success; the source must exist
// and be exported, per spec.md §4.5.
func (r *Registry) Import(from token.FileID, name string, to token.FileID, alias string) error {
	if from == to {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isExportedLocked(from, name) {
		return newError(name, "", fmt.Errorf("macro %q is not defined and exported in the source file", name))
	}

	if r.importedMacros[to] == nil {
		r.importedMacros[to] = make(map[string]token.FileID)
	}
	key := name
	if alias != "" && alias != name {
		key = alias
		if r.macroAliases[to] == nil {
			r.macroAliases[to] = make(map[string]string)
		}
		r.macroAliases[to][alias] = name
	}
	r.importedMacros[to][key] = from
	if mirror := sanitize(key); mirror != key {
		r.importedMacros[to][mirror] = from
		if key != name {
			r.macroAliases[to][mirror] = name
		}
	}
	r.invalidateCache()
	return nil
}

func (r *Registry) isExportedLocked(file token.FileID, name string) bool {
	if r.exportedMacros[file] == nil {
		return false
	}
	if r.exportedMacros[file][name] {
		return true
	}
	return r.exportedMacros[file][sanitize(name)]
}

// Get resolves name as visible from currentFile, per spec.md §4.5's
// lookup order: system, then defined in currentFile, then imported into
// currentFile (resolving aliases back to the original, re-verifying
// export). Never errors; a miss simply returns ok=false.
func (r *Registry) Get(name string, currentFile token.FileID) (*MacroDef, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := cacheKey{file: currentFile, name: name}
	if def, ok := r.lookupCache[key]; ok {
		return def, true
	}

	if def, ok := r.systemMacros[name]; ok {
		r.lookupCache[key] = def
		return def, true
	}
	if def, ok := r.systemMacros[sanitize(name)]; ok {
		r.lookupCache[key] = def
		return def, true
	}

	if mod := r.moduleMacros[currentFile]; mod != nil {
		if def, ok := mod[name]; ok {
			r.lookupCache[key] = def
			return def, true
		}
		if def, ok := mod[sanitize(name)]; ok {
			r.lookupCache[key] = def
			return def, true
		}
	}

	if imp := r.importedMacros[currentFile]; imp != nil {
		source, ok := imp[name]
		if !ok {
			source, ok = imp[sanitize(name)]
		}
		if ok {
			original := name
			if aliases := r.macroAliases[currentFile]; aliases != nil {
				if o, isAlias := aliases[name]; isAlias {
					original = o
				}
			}
			if r.isExportedLocked(source, original) {
				if def, ok := r.moduleMacros[source][original]; ok {
					r.lookupCache[key] = def
					return def, true
				}
				if def, ok := r.moduleMacros[source][sanitize(original)]; ok {
					r.lookupCache[key] = def
					return def, true
				}
			}
		}
	}

	return nil, false
}

// HasMacro mirrors Get but yields only a boolean.
func (r *Registry) HasMacro(name string, currentFile token.FileID) bool {
	_, ok := r.Get(name, currentFile)
	return ok
}

// IsUserLevelMacro is true iff name is defined in or imported into file
// (system macros do not count).
func (r *Registry) IsUserLevelMacro(name string, file token.FileID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if mod := r.moduleMacros[file]; mod != nil {
		if _, ok := mod[name]; ok {
			return true
		}
		if _, ok := mod[sanitize(name)]; ok {
			return true
		}
	}
	if imp := r.importedMacros[file]; imp != nil {
		if _, ok := imp[name]; ok {
			return true
		}
		if _, ok := imp[sanitize(name)]; ok {
			return true
		}
	}
	return false
}

// MarkProcessed records file as processed. processed_files is
// monotonically growing, per spec.md §3 invariant 3.
func (r *Registry) MarkProcessed(file token.FileID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processedFiles[file] = true
}

// IsProcessed reports whether file has already been marked processed.
func (r *Registry) IsProcessed(file token.FileID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.processedFiles[file]
}
