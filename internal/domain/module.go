package domain

import "strings"

// Module is an add-on installed in the world, as reported by the host.
type Module struct {
	ID      string `json:"id" yaml:"id"`
	Title   string `json:"title" yaml:"title"`
	Version string `json:"version" yaml:"version"`
	Active  bool   `json:"active" yaml:"active"`
}

// NewModule constructs a Module, enforcing that an identifier is present.
func NewModule(id, title, version string, active bool) (Module, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Module{}, invalidModuleError("module id is required", nil)
	}
	if strings.TrimSpace(title) == "" {
		title = id
	}
	return Module{
		ID:      id,
		Title:   title,
		Version: strings.TrimSpace(version),
		Active:  active,
	}, nil
}

// DisplayTitle returns the title, falling back to the identifier.
func (m Module) DisplayTitle() string {
	if strings.TrimSpace(m.Title) == "" {
		return m.ID
	}
	return m.Title
}

// ActiveModules returns the active modules in their original order.
func ActiveModules(modules []Module) []Module {
	active := make([]Module, 0, len(modules))
	for _, m := range modules {
		if m.Active {
			active = append(active, m)
		}
	}
	return active
}
