package catalog

import (
	"errors"
	"fmt"
)

// ErrDuplicateID is returned by New when two products share an identifier.
var ErrDuplicateID = errors.New("duplicate product id")

// Catalog is an ordered, read-only set of products.
// It is built once at startup and never mutated, so it is safe for
// concurrent use without locking.
type Catalog struct {
	products []Product
	index    map[string]int
}

// New builds a Catalog preserving the order of products.
func New(products []Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		index:    make(map[string]int, len(products)),
	}

	for i, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("product #%d (%q): empty id", i, p.Name)
		}
		if _, ok := c.index[p.ID]; ok {
			return nil, fmt.Errorf("product %q: %w", p.ID, ErrDuplicateID)
		}
		c.index[p.ID] = len(c.products)
		c.products = append(c.products, p.clone())
	}

	return c, nil
}

// Len returns the number of products.
func (c *Catalog) Len() int { return len(c.products) }

// Products returns every product exactly once, in declaration order.
func (c *Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	for i, p := range c.products {
		out[i] = p.clone()
	}
	return out
}

// Get returns the product with the given id.
func (c *Catalog) Get(id string) (Product, bool) {
	i, ok := c.index[id]
	if !ok {
		return Product{}, false
	}
	return c.products[i].clone(), true
}

// Select returns the name/price view of every product whose id appears in ids.
//
// Output follows catalog order, not request order. Unknown ids are dropped
// and duplicates in ids do not produce duplicate entries. The result is never
// nil so it serialises as [] rather than null.
func (c *Catalog) Select(ids []string) []Selection {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	out := make([]Selection, 0, len(want))
	for _, p := range c.products {
		if _, ok := want[p.ID]; ok {
			out = append(out, p.selection())
		}
	}
	return out
}
