package domain

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Flag is a boolean column that tolerates the representations the
// storage layer is known to produce: native booleans, integers (SQLite),
// and the string literals "true"/"t"/"1" (and their false counterparts).
// Anything outside that allow-list is a scan error rather than a silent
// default, so data-quality problems surface instead of being masked.
// NULL scans as false.
type Flag bool

// Scan implements sql.Scanner.
func (f *Flag) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*f = false
		return nil
	case bool:
		*f = Flag(v)
		return nil
	case int64:
		*f = v != 0
		return nil
	case []byte:
		return f.parse(string(v))
	case string:
		return f.parse(v)
	default:
		return fmt.Errorf("cannot scan %T into Flag", src)
	}
}

func (f *Flag) parse(s string) error {
	switch strings.ToLower(s) {
	case "true", "t", "1":
		*f = true
	case "false", "f", "0", "":
		*f = false
	default:
		return fmt.Errorf("invalid boolean literal %q", s)
	}
	return nil
}

// Value implements driver.Valuer.
func (f Flag) Value() (driver.Value, error) {
	return bool(f), nil
}
