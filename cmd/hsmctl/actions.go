package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/comalice/hsmx/internal/primitives"
)

// scriptActions interprets the action names a chart can use without Go code:
//
//	incr:key       add one to an integer variable
//	decr:key       subtract one
//	set:key=value  store value, parsed as int, float or bool when possible
//	unset:key      delete a variable
//
// Any other name is logged and otherwise ignored.
type scriptActions struct {
	logger *slog.Logger
}

func (a scriptActions) Run(_ context.Context, ext *primitives.ExtendedState, action primitives.ActionRef, evt primitives.Event) error {
	name, ok := action.(string)
	if !ok {
		return fmt.Errorf("unsupported action reference %T", action)
	}

	verb, arg, _ := strings.Cut(name, ":")
	switch verb {
	case "incr":
		ext.Incr(arg, 1)
	case "decr":
		ext.Incr(arg, -1)
	case "set":
		key, raw, found := strings.Cut(arg, "=")
		if !found || key == "" {
			return fmt.Errorf("action %q: want set:key=value", name)
		}
		ext.Set(key, scalar(raw))
	case "unset":
		ext.Delete(arg)
	default:
		a.logger.Info("action", "name", name, "event", evt.Type)
	}
	return nil
}

func scalar(raw string) any {
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}
