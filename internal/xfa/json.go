package xfa

import (
	"bytes"
	"encoding/json"

	"github.com/tidwall/pretty"
)

// object is a JSON object that keeps keys in insertion order. encoding/json
// sorts map keys, which would lose the source order of the form.
type object struct {
	keys   []string
	values map[string]any
}

func newObject() *object {
	return &object{values: make(map[string]any)}
}

func (o *object) len() int { return len(o.keys) }

func (o *object) set(key string, value any) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// merge adds value under key; a repeated key turns the entry into an array
// holding every value in arrival order.
func (o *object) merge(key string, value any) {
	existing, ok := o.values[key]
	if !ok {
		o.set(key, value)
		return
	}
	if arr, isArr := existing.([]any); isArr {
		o.values[key] = append(arr, value)
		return
	}
	o.values[key] = []any{existing, value}
}

// MarshalJSON writes the object with keys in insertion order
func (o *object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalRaw(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := marshalRaw(o.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalRaw(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

var prettyOptions = &pretty.Options{Width: 80, Prefix: "", Indent: "  ", SortKeys: false}

// encodeIndented renders v as indented JSON without HTML escaping
func encodeIndented(v any) ([]byte, error) {
	raw, err := marshalRaw(v)
	if err != nil {
		return nil, err
	}
	return bytes.TrimRight(pretty.PrettyOptions(raw, prettyOptions), "\n"), nil
}
