package scope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"mercator-hq/ldatranslate/pkg/voting/value"
)

// UnmarshalYAML decodes a YAML mapping into c, keeping document order.
// Legacy names such as reciprocal_rank are stored under their canonical name.
func (c *Vars) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: context must be a mapping", node.Line)
	}
	*c = Vars{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		v, err := valueFromYAML(val)
		if err != nil {
			return fmt.Errorf("line %d: %s: %w", val.Line, key.Value, err)
		}
		c.Set(Canonical(key.Value), v)
	}
	return nil
}

// MarshalYAML encodes c as an ordered mapping.
func (c *Vars) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, v := range c.vars {
		val := &yaml.Node{}
		if err := val.Encode(v.Value.Native()); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: v.Name}, val)
	}
	return node, nil
}

func valueFromYAML(node *yaml.Node) (value.Value, error) {
	switch node.Kind {
	case yaml.AliasNode:
		return valueFromYAML(node.Alias)
	case yaml.SequenceNode:
		items := make([]value.Value, len(node.Content))
		for i, n := range node.Content {
			v, err := valueFromYAML(n)
			if err != nil {
				return value.Value{}, err
			}
			items[i] = v
		}
		return value.Tuple(items...), nil
	case yaml.ScalarNode:
		switch node.ShortTag() {
		case "!!null":
			return value.Empty(), nil
		case "!!bool":
			var b bool
			if err := node.Decode(&b); err != nil {
				return value.Value{}, err
			}
			return value.Bool(b), nil
		case "!!int":
			var i int64
			if err := node.Decode(&i); err != nil {
				return value.Value{}, err
			}
			return value.Int(i), nil
		case "!!float":
			var f float64
			if err := node.Decode(&f); err != nil {
				return value.Value{}, err
			}
			return value.Float(f), nil
		default:
			return value.String(node.Value), nil
		}
	default:
		return value.Value{}, fmt.Errorf("unsupported yaml node kind %d", node.Kind)
	}
}

// UnmarshalJSON decodes a JSON object into c, keeping document order.
func (c *Vars) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	order, err := objectKeys(data)
	if err != nil {
		return err
	}
	*c = Vars{}
	for _, k := range order {
		var v value.Value
		if err := json.Unmarshal(raw[k], &v); err != nil {
			return fmt.Errorf("%s: %w", strconv.Quote(k), err)
		}
		c.Set(Canonical(k), v)
	}
	return nil
}

// MarshalJSON encodes c as an object with keys in insertion order.
func (c *Vars) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, v := range c.vars {
		if i > 0 {
			buf = append(buf, ',')
		}
		k, err := json.Marshal(v.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v.Value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, k...)
		buf = append(buf, ':')
		buf = append(buf, val...)
	}
	return append(buf, '}'), nil
}

// objectKeys returns the top-level keys of a JSON object in document order.
func objectKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}
