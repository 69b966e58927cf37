package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// file is the on-disk layout of a catalog file:
//
//	products:
//	  - id: "1"
//	    name: Classic Denim Jacket
//	    ...
type file struct {
	Products []Product `json:"products" yaml:"products"`
}

// Load reads a catalog from a YAML or JSON file, chosen by extension.
// An empty path returns the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var f file
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	case ".json":
		err = json.Unmarshal(data, &f)
	default:
		return nil, fmt.Errorf("catalog %s: unsupported extension (want .yaml, .yml or .json)", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	if len(f.Products) == 0 {
		return nil, fmt.Errorf("catalog %s: no products", path)
	}

	c, err := New(f.Products)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}
