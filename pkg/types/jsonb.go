package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

func jsonValue(v any) (driver.Value, error) {
	return json.Marshal(v)
}

// scanColumn decodes a JSON/JSONB column into dest. NULL and empty payloads
// reset dest to its zero value; a malformed payload leaves it untouched.
func scanColumn[T any](label string, src any, dest *T) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("%s: cannot scan %T", label, src)
	}

	var decoded T
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
	}
	*dest = decoded
	return nil
}
