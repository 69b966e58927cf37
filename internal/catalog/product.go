// Package catalog holds the fixed product set the concierge is allowed to
// recommend from.
//
// Field values are kept as strings exactly as declared ("89.99", "128",
// "true"). The storefront frontend parses them itself, so numeric fields are
// never coerced here.
package catalog

// Product is one catalog entry.
type Product struct {
	ID            string   `json:"id" yaml:"id"`
	Name          string   `json:"name" yaml:"name"`
	Price         string   `json:"price" yaml:"price"`
	OriginalPrice string   `json:"originalPrice,omitempty" yaml:"originalPrice,omitempty"`
	Image         string   `json:"image" yaml:"image"`
	Category      string   `json:"category" yaml:"category"`
	Brand         string   `json:"brand" yaml:"brand"`
	Rating        string   `json:"rating" yaml:"rating"`
	Reviews       string   `json:"reviews" yaml:"reviews"`
	Colors        Colors   `json:"colors" yaml:"colors"`
	Sizes         []string `json:"sizes" yaml:"sizes"`
	IsSale        string   `json:"isSale,omitempty" yaml:"isSale,omitempty"`
	IsNew         string   `json:"isNew,omitempty" yaml:"isNew,omitempty"`
}

// Selection is the reduced view of a Product sent to the frontend for display.
type Selection struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

// OnSale reports whether the product carries a discount. Only the literal
// "true" counts.
func (p Product) OnSale() bool { return p.IsSale == "true" }

// clone returns a deep copy so callers can't reach into catalog storage.
func (p Product) clone() Product {
	out := p
	out.Colors = p.Colors.clone()
	if p.Sizes != nil {
		out.Sizes = append([]string(nil), p.Sizes...)
	}
	return out
}

func (p Product) selection() Selection {
	return Selection{Name: p.Name, Price: p.Price}
}
