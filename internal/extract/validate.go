package extract

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/dgallion1/resumex/internal/schema"
)

// Validate checks a finished record against cfg. Required keys that still
// hold their template default, or hold nothing, produce a
// *RequiredFieldMissingError. When cfg carries a validation schema the
// record must also satisfy it.
func Validate(rec Record, cfg *schema.Config) error {
	var missing []string
	for _, key := range cfg.Required {
		v := rec[key]
		if isEmpty(v) || reflect.DeepEqual(v, cfg.Template[key]) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return &RequiredFieldMissingError{Fields: missing}
	}

	v := cfg.Validator()
	if v == nil {
		return nil
	}
	// The validator only understands decoded JSON values.
	raw, err := sonic.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	var doc any
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	if err := v.Validate(doc); err != nil {
		return fmt.Errorf("%w: %w", ErrSchemaViolation, err)
	}
	return nil
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		for _, inner := range t {
			if !isEmpty(inner) {
				return false
			}
		}
		return true
	}
	return false
}
