package resource

import (
	"bytes"
	"encoding/json"
	"maps"
	"strconv"
	"strings"

	"github.com/afyamkononi/afyadmin/internal/errors"
	"github.com/afyamkononi/afyadmin/internal/modal"
)

// Record is one backend entity as decoded JSON. The console does not
// interpret its fields beyond id, the search fields and the filter field.
type Record map[string]any

// ID returns the record's integer id.
func (r Record) ID() (int64, bool) {
	switch v := r["id"].(type) {
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case float64:
		if v != float64(int64(v)) {
			return 0, false
		}
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// Text renders field for display. "full_name" joins first and last name.
func (r Record) Text(field string) string {
	if field == "full_name" {
		if v, ok := r["full_name"]; ok {
			return modal.Format(v)
		}
		if v, ok := r["name"]; ok {
			return modal.Format(v)
		}
		return strings.TrimSpace(modal.Format(r["first_name"]) + " " + modal.Format(r["last_name"]))
	}
	return modal.Format(r[field])
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	return maps.Clone(r)
}

// decodeList decodes a collection body. Numbers are kept as json.Number so
// large ids survive the round trip.
func decodeList(body json.RawMessage, envelope string) ([]Record, error) {
	trimmed := bytes.TrimSpace(body)
	if envelope != "" && len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapper map[string]json.RawMessage
		if err := unmarshal(trimmed, &wrapper); err != nil {
			return nil, err
		}
		inner, ok := wrapper[envelope]
		if !ok {
			return nil, errors.New(errors.ErrCodeAPIDecode, "response has no \""+envelope+"\" field")
		}
		trimmed = bytes.TrimSpace(inner)
	}
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []Record{}, nil
	}
	var items []Record
	if err := unmarshal(trimmed, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []Record{}
	}
	return items, nil
}

func unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeAPIDecode, "unexpected response shape", err)
	}
	return nil
}

// Narrow returns the items matching query and filter, in their original
// order. Matching is a case-insensitive substring test over the kind's search
// fields; filter compares the kind's filter field exactly, FilterAll or ""
// keeping everything.
func Narrow(k *Kind, items []Record, query, filter string) []Record {
	q := strings.ToLower(strings.TrimSpace(query))
	byFilter := k.FilterField != "" && filter != "" && filter != FilterAll

	out := make([]Record, 0, len(items))
	for _, item := range items {
		if byFilter && item.Text(k.FilterField) != filter {
			continue
		}
		if q != "" && !matches(k, item, q) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func matches(k *Kind, item Record, q string) bool {
	for _, f := range k.SearchFields {
		if strings.Contains(strings.ToLower(item.Text(f)), q) {
			return true
		}
	}
	return false
}
