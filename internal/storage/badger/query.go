package badger

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/bobmcallan/advisor-portal/internal/interfaces"
)

// encodeFields resolves ServerTimestamp sentinels and serializes fields.
func encodeFields(fields map[string]interface{}, now time.Time) ([]byte, error) {
	resolved := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if interfaces.IsServerTimestamp(v) {
			resolved[k] = now
			continue
		}
		resolved[k] = v
	}
	data, err := json.Marshal(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document fields: %w", err)
	}
	return data, nil
}

func decodeFields(data []byte) (map[string]interface{}, error) {
	fields := map[string]interface{}{}
	if len(data) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode document fields: %w", err)
	}
	return fields, nil
}

// normalize passes v through the same JSON round trip stored values take, so
// an int filter matches a stored float64 and a time matches its string form.
func normalize(v interface{}) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

// matches reports whether doc satisfies every equality filter.
func matches(doc interfaces.Document, where []interfaces.Filter) bool {
	for _, f := range where {
		got, ok := doc.Fields[f.Field]
		if !ok {
			return false
		}
		if !reflect.DeepEqual(got, normalize(f.Value)) {
			return false
		}
	}
	return true
}

// sortDocuments orders docs by field; ties and missing values fall back to
// document ID so results are deterministic.
func sortDocuments(docs []interfaces.Document, field string, descending bool) {
	if field == "" {
		sort.SliceStable(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		c := compareValues(docs[i].Fields[field], docs[j].Fields[field])
		if c == 0 {
			return docs[i].ID < docs[j].ID
		}
		if descending {
			return c > 0
		}
		return c < 0
	})
}

// compareValues orders nil first, then numbers, then times, then strings.
func compareValues(a, b interface{}) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	if fa, ok := a.(float64); ok {
		if fb, ok := b.(float64); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}

	sa, aok := a.(string)
	sb, bok := b.(string)
	if aok && bok {
		ta, errA := time.Parse(time.RFC3339Nano, sa)
		tb, errB := time.Parse(time.RFC3339Nano, sb)
		if errA == nil && errB == nil {
			return ta.Compare(tb)
		}
		switch {
		case sa < sb:
			return -1
		case sa > sb:
			return 1
		}
		return 0
	}

	return 0
}
