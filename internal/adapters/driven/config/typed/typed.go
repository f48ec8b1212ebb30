// Package typed converts raw configuration values to the Go types settings
// ask for. Both config store implementations share it so a value reads the
// same whether it came from TOML or was set in memory.
package typed

// Lookup returns a raw value and whether the key exists.
type Lookup func(key string) (any, bool)

// Getters adds the typed half of driven.ConfigStore to a Lookup. Embed it
// in a store and point it at the store's Get method.
type Getters struct {
	lookup Lookup
}

// New returns getters reading through lookup.
func New(lookup Lookup) Getters {
	return Getters{lookup: lookup}
}

func (g Getters) value(key string) any {
	if g.lookup == nil {
		return nil
	}
	v, _ := g.lookup(key)
	return v
}

// GetString returns "" for missing keys and non-string values.
func (g Getters) GetString(key string) string {
	s, _ := g.value(key).(string)
	return s
}

// GetInt accepts any integer width. TOML decodes integers as int64 and JSON
// as float64; fractional floats are truncated.
func (g Getters) GetInt(key string) int {
	switch v := g.value(key).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func (g Getters) GetBool(key string) bool {
	b, _ := g.value(key).(bool)
	return b
}

// GetStringSlice reads a list. A plain string is a one-element list and
// non-string items of a decoded array are skipped.
func (g Getters) GetStringSlice(key string) []string {
	switch v := g.value(key).(type) {
	case []string:
		return v
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
