package domain

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/bytedance/sonic"
)

// codec mirrors encoding/json behaviour (sorted map keys, HTML escaping) so the
// document written to disk is stable between saves.
var codec = sonic.ConfigStd

// Extra holds JSON members this package does not model. They are carried
// through load and save untouched.
type Extra map[string]json.RawMessage

// jsonKeys collects the JSON member names declared on a struct type.
func jsonKeys(v any) map[string]struct{} {
	t := reflect.TypeOf(v)
	keys := make(map[string]struct{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		name, _, _ := strings.Cut(tag, ",")
		if name == "" || name == "-" {
			continue
		}
		keys[name] = struct{}{}
	}
	return keys
}

// splitExtra returns the members of the JSON object in data that are not in known.
func splitExtra(data []byte, known map[string]struct{}) (Extra, error) {
	var all map[string]json.RawMessage
	if err := codec.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for k := range all {
		if _, ok := known[k]; ok {
			delete(all, k)
		}
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// mergeExtra appends the extra members to the encoded object in fields.
func mergeExtra(fields []byte, extra Extra) ([]byte, error) {
	if len(extra) == 0 {
		return fields, nil
	}
	tail, err := codec.Marshal(map[string]json.RawMessage(extra))
	if err != nil {
		return nil, err
	}
	fields = bytes.TrimSpace(fields)
	head := bytes.TrimSuffix(fields, []byte("}"))
	tail = bytes.TrimPrefix(bytes.TrimSpace(tail), []byte("{"))

	out := make([]byte, 0, len(head)+len(tail)+1)
	out = append(out, head...)
	if len(bytes.TrimSpace(head)) > 1 {
		out = append(out, ',')
	}
	out = append(out, tail...)
	return out, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
