package action

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Operation is one builtin CASL operation.
type Operation func(w io.Writer, params []string)

// Registry maps case-insensitive operation names to builtins.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]Operation
}

// NewRegistry returns a registry holding the builtin operations.
func NewRegistry() *Registry {
	r := &Registry{ops: make(map[string]Operation)}
	r.Register("hello world", helloWorld)
	r.Register("debug", bannerOperation("CASL DEBUG MESSAGE"))
	r.Register("warning", bannerOperation("CASL WARNING MESSAGE"))
	r.Register("error", bannerOperation("CASL ERROR MESSAGE"))
	return r
}

// Register adds or replaces an operation.
func (r *Registry) Register(name string, op Operation) {
	name = normalizeOperation(name)
	if name == "" || op == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[name] = op
}

// Lookup returns the operation registered under name, ignoring case.
func (r *Registry) Lookup(name string) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[normalizeOperation(name)]
	return op, ok
}

// Names returns registered operation names sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeOperation(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func helloWorld(w io.Writer, params []string) {
	if len(params) == 0 {
		fmt.Fprintln(w, "Hello world")
		return
	}
	fmt.Fprintf(w, "Hello %s world\n", params[0])
}

var bannerBox = lipgloss.NewStyle().
	Border(lipgloss.NormalBorder()).
	Padding(0, 1)

// bannerOperation prints params one per line inside a titled box.
func bannerOperation(title string) Operation {
	return func(w io.Writer, params []string) {
		fmt.Fprintln(w, renderBanner(title, params))
	}
}

func renderBanner(title string, params []string) string {
	header := `\/ ` + title + ` \/`
	footer := `/\ ` + title + ` /\`
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		bannerBox.Render(strings.Join(params, "\n")),
		footer,
	)
}
