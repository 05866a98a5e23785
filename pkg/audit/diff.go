package audit

import (
	"encoding/json"
	"sort"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/bitechdev/ResourceSpec/pkg/adapter"
)

// ChangedFields returns the sorted top-level field names whose values
// differ between the before and after snapshots. Comparison runs over
// the JSON forms so loosely-typed values compare by content.
func ChangedFields(before, after adapter.Record) []string {
	if before == nil && after == nil {
		return nil
	}

	beforeJSON, err := json.Marshal(before)
	if err != nil {
		return nil
	}
	afterJSON, err := json.Marshal(after)
	if err != nil {
		return nil
	}

	changed := make(map[string]struct{})

	// A nil record marshals to JSON null, which ForEach would visit
	// once under an empty key. Only walk object snapshots.
	if parsed := gjson.ParseBytes(afterJSON); parsed.IsObject() {
		parsed.ForEach(func(key, value gjson.Result) bool {
			prev := gjson.GetBytes(beforeJSON, key.String())
			if !prev.Exists() || prev.Raw != value.Raw {
				changed[key.String()] = struct{}{}
			}
			return true
		})
	}
	if parsed := gjson.ParseBytes(beforeJSON); parsed.IsObject() {
		parsed.ForEach(func(key, value gjson.Result) bool {
			if !gjson.GetBytes(afterJSON, key.String()).Exists() {
				changed[key.String()] = struct{}{}
			}
			return true
		})
	}

	if len(changed) == 0 {
		return nil
	}
	out := make([]string, 0, len(changed))
	for key := range changed {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// redactRecord replaces the named fields with a placeholder so
// secrets never reach an audit sink.
func redactRecord(rec adapter.Record, fields []string) adapter.Record {
	if rec == nil || len(fields) == 0 {
		return rec
	}

	encoded, err := json.Marshal(rec)
	if err != nil {
		return rec
	}
	for _, field := range fields {
		if gjson.GetBytes(encoded, field).Exists() {
			encoded, err = sjson.SetBytes(encoded, field, "[redacted]")
			if err != nil {
				return rec
			}
		}
	}

	var out adapter.Record
	if json.Unmarshal(encoded, &out) != nil {
		return rec
	}
	return out
}
