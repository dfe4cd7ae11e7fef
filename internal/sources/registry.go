// Package sources maps provider CSV dialects onto the canonical
// header/detail model. Each adapter owns the date formats and column
// aliases of one export format; the registry dispatches by source id.
package sources

import (
	"fmt"
	"strings"

	"monexa/internal/core"
)

// ParsedFile is the canonical output of one adapter pass over a file.
// TotalRows counts the data rows found, whether or not they parsed, so
// callers can tell a truncated preview from a short file. PartialFailures
// counts rows excluded because no amount could be recovered; a malformed
// row never aborts the rest of the file.
type ParsedFile struct {
	Headers         []core.TransactionHeader
	Details         []core.DetailLine
	TotalRows       int
	PartialFailures int
}

// Adapter parses the rows of one provider's CSV dialect.
type Adapter interface {
	Source() string
	Parse(rows []Row) ParsedFile
}

// Registry holds the adapters keyed by source id.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter. Panics on a duplicate source id.
func (r *Registry) Register(a Adapter) {
	key := strings.ToLower(a.Source())
	if _, ok := r.adapters[key]; ok {
		panic("duplicate source adapter: " + key)
	}
	r.adapters[key] = a
}

// Lookup returns the adapter for the source id. Unknown ids fail with
// core.ErrUnsupportedSource; the generic dialect is selected explicitly,
// never used as an implicit fallback.
func (r *Registry) Lookup(source string) (Adapter, error) {
	a, ok := r.adapters[strings.ToLower(strings.TrimSpace(source))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnsupportedSource, source)
	}
	return a, nil
}

// Sources lists the registered source ids.
func (r *Registry) Sources() []string {
	out := make([]string, 0, len(r.adapters))
	for k := range r.adapters {
		out = append(out, k)
	}
	return out
}

// Default returns a registry with all built-in dialects.
func Default() *Registry {
	r := NewRegistry()
	r.Register(&GenericAdapter{})
	r.Register(&BankAdapter{})
	r.Register(&GPayAdapter{})
	r.Register(&PaytmAdapter{})
	r.Register(&PhonePeAdapter{})
	r.Register(&AmazonAdapter{})
	return r
}
