package log

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Field is an alias for zap.Field.
type Field = zap.Field

func String(key string, val string) Field { return zap.String(key, val) }

func Strings(key string, val []string) Field { return zap.Strings(key, val) }

func Int(key string, val int) Field { return zap.Int(key, val) }

func Int64(key string, val int64) Field { return zap.Int64(key, val) }

func Bool(key string, val bool) Field { return zap.Bool(key, val) }

func Duration(key string, val time.Duration) Field { return zap.Duration(key, val) }

func Stringer(key string, val fmt.Stringer) Field { return zap.Stringer(key, val) }

func Any(key string, val any) Field { return zap.Any(key, val) }

// Err is shorthand for NamedErr("error", err). A nil err produces a no-op
// field.
func Err(err error) Field { return zap.Error(err) }

func NamedErr(key string, err error) Field { return zap.NamedError(key, err) }

func Skip() Field { return zap.Skip() }
