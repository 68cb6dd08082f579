package models

import (
	"time"

	"github.com/raywall/taxless-service/dyndb"
)

// Helpers for reading loosely typed storage records back into entities.
// Numbers come back as float64 and lists as []any, so every accessor
// tolerates both the typed and the decoded shape.

func recString(rec dyndb.Record, key string) string {
	if s, ok := rec[key].(string); ok {
		return s
	}
	return ""
}

func recFloat(rec dyndb.Record, key string) float64 {
	switch v := rec[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func recInt(rec dyndb.Record, key string) int {
	return int(recFloat(rec, key))
}

func recBool(rec dyndb.Record, key string) bool {
	b, _ := rec[key].(bool)
	return b
}

func recTime(rec dyndb.Record, key string) time.Time {
	switch v := rec[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func recStrings(rec dyndb.Record, key string) []string {
	switch v := rec[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func recMap(rec dyndb.Record, key string) dyndb.Record {
	switch v := rec[key].(type) {
	case dyndb.Record:
		return v
	case map[string]any:
		return dyndb.Record(v)
	}
	return nil
}

func recFloatPtr(rec dyndb.Record, key string) *float64 {
	if _, ok := rec[key]; !ok || rec[key] == nil {
		return nil
	}
	f := recFloat(rec, key)
	return &f
}
