package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tutrabajo/apiserver/internal/store"
)

func field(rec store.Record, name string) any {
	v, _ := rec.Get(name)
	return v
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func asNullString(v any) *string {
	if v == nil {
		return nil
	}
	s := asString(v)
	return &s
}

func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int64:
		return t != 0
	case int:
		return t != 0
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b
	default:
		return false
	}
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n
	default:
		return 0
	}
}

func asTime(v any) (time.Time, error) {
	return store.ParseTime(v)
}

// now returns the current time at the precision every backend stores.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
