package material

import (
	"maps"
	"slices"
)

// Catalog is a caller-owned registry of named materials. It is not safe
// for concurrent mutation; populate it before rendering.
type Catalog struct {
	classic map[string]Classic
	pbr     map[string]*PBR
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		classic: make(map[string]Classic),
		pbr:     make(map[string]*PBR),
	}
}

// AddClassic registers materials, replacing any with the same name.
func (c *Catalog) AddClassic(mats ...Classic) {
	for _, m := range mats {
		c.classic[m.Name] = m
	}
}

// AddPBR registers a PBR material under name.
func (c *Catalog) AddPBR(name string, m *PBR) {
	c.pbr[name] = m
}

// Classic looks up a classic material.
func (c *Catalog) Classic(name string) (Classic, bool) {
	m, ok := c.classic[name]
	return m, ok
}

// PBR looks up a PBR material.
func (c *Catalog) PBR(name string) (*PBR, bool) {
	m, ok := c.pbr[name]
	return m, ok
}

// Names returns every registered name, sorted.
func (c *Catalog) Names() []string {
	names := slices.Collect(maps.Keys(c.classic))
	for name := range c.pbr {
		if _, dup := c.classic[name]; !dup {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}
