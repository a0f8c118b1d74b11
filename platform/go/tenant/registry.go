package tenant

import (
	"sort"
	"strings"
)

// Registry is the static allow-list of tenant codes. It is the first line of
// defense: a code that fails membership here never reaches the network.
type Registry struct {
	codes map[string]struct{}
}

// NewRegistry builds a Registry from the configured codes. Codes are normalized
// on the way in; empty entries are discarded.
func NewRegistry(codes []string) *Registry {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		c = Normalize(c)
		if c == "" {
			continue
		}
		set[c] = struct{}{}
	}
	return &Registry{codes: set}
}

// IsValid reports whether the code belongs to the allow-list. Pure and
// synchronous; normalization is applied before the membership test.
func (r *Registry) IsValid(code string) bool {
	_, ok := r.codes[Normalize(code)]
	return ok
}

// Codes returns the allow-listed codes in stable order, for user-facing messages.
func (r *Registry) Codes() []string {
	out := make([]string, 0, len(r.codes))
	for c := range r.codes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// CodesLabel renders the allow-list as a comma separated label.
func (r *Registry) CodesLabel() string {
	return strings.Join(r.Codes(), ", ")
}
