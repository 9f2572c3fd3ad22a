package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

var symbolRegex = regexp.MustCompile(`^[A-Z][A-Z0-9.]{0,9}$`)

// NormalizeSymbol trims and upper-cases a ticker symbol and checks it
// against ^[A-Z][A-Z0-9.]{0,9}$. Unknown-but-well-formed symbols are
// accepted; they are priced at the source's default.
func NormalizeSymbol(s string) (string, error) {
	sym := strings.ToUpper(strings.TrimSpace(s))
	if !symbolRegex.MatchString(sym) {
		return "", &ValidationError{
			Message: fmt.Sprintf("symbol must match ^[A-Z][A-Z0-9.]{0,9}$, got %q", s),
		}
	}
	return sym, nil
}

// SymbolRegistry tracks symbols that have been traded in a thread-safe
// manner. Symbols are registered when a buy succeeds on any account.
type SymbolRegistry struct {
	mu      sync.RWMutex
	symbols map[string]bool
}

// NewSymbolRegistry creates an empty SymbolRegistry.
func NewSymbolRegistry() *SymbolRegistry {
	return &SymbolRegistry{
		symbols: make(map[string]bool),
	}
}

// Register adds a symbol to the registry. Safe for concurrent use.
func (r *SymbolRegistry) Register(symbol string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.symbols[symbol] = true
}

// Exists returns true if the symbol has been registered. Safe for concurrent use.
func (r *SymbolRegistry) Exists(symbol string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.symbols[symbol]
}

// List returns the registered symbols in ascending order.
func (r *SymbolRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.symbols))
	for s := range r.symbols {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
