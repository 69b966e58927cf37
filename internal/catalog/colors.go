package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Colors is either a single colour string or an ordered list of colours.
// Entries in the seed catalog use both shapes, and the frontend handles both,
// so the declared shape is preserved on the way back out.
type Colors struct {
	values []string
	single bool
}

// SingleColor returns a Colors that serialises as a plain string.
func SingleColor(c string) Colors {
	return Colors{values: []string{c}, single: true}
}

// ColorList returns a Colors that serialises as an array.
func ColorList(cs ...string) Colors {
	return Colors{values: append([]string{}, cs...)}
}

// Values returns the colours in declaration order.
func (c Colors) Values() []string { return append([]string(nil), c.values...) }

// IsSingle reports whether the colours were declared as a single string.
func (c Colors) IsSingle() bool { return c.single }

func (c Colors) clone() Colors {
	return Colors{values: append([]string(nil), c.values...), single: c.single}
}

func (c Colors) MarshalJSON() ([]byte, error) {
	if c.single {
		return json.Marshal(c.values[0])
	}
	if c.values == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.values)
}

func (c *Colors) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = SingleColor(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("colors must be a string or a list of strings: %w", err)
	}
	*c = ColorList(list...)
	return nil
}

func (c Colors) MarshalYAML() (any, error) {
	if c.single {
		return c.values[0], nil
	}
	return c.Values(), nil
}

func (c *Colors) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*c = SingleColor(node.Value)
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*c = ColorList(list...)
		return nil
	default:
		return fmt.Errorf("line %d: colors must be a string or a list of strings", node.Line)
	}
}
