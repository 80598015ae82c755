package factory

import "time"

func merge(defaults map[string]any, customData []map[string]any) map[string]any {
	data := make(map[string]any, len(defaults))

	for k, v := range defaults {
		data[k] = v
	}

	for _, m := range customData {
		for k, v := range m {
			data[k] = v
		}
	}

	return data
}

// pointerField removes key from data and returns it as *T. The value may be
// given as T or *T.
func pointerField[T any](data map[string]any, key string) *T {
	raw, ok := data[key]
	delete(data, key)

	if !ok || raw == nil {
		return nil
	}

	switch v := raw.(type) {
	case T:
		return &v
	case *T:
		return v
	}

	return nil
}

func timeField(data map[string]any, key string, fallback time.Time) time.Time {
	if t := pointerField[time.Time](data, key); t != nil {
		return t.UTC()
	}

	return fallback
}
