package logging

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// redacted replaces secret attribute values in every sink, including the
// panel log stream.
const redacted = "[redacted]"

var secretKeys = map[string]struct{}{
	"token":           {},
	"panel_token":     {},
	"access_token":    {},
	"fb_access_token": {},
	"app_secret":      {},
	"fb_app_secret":   {},
	"password":        {},
	"api_key":         {},
	"imgbb_api_key":   {},
}

// isSecretKey matches the last segment of a possibly dotted key.
func isSecretKey(key string) bool {
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		key = key[i+1:]
	}
	_, ok := secretKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

func redactAttr(attr slog.Attr) slog.Attr {
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() != slog.KindGroup {
		if isSecretKey(attr.Key) {
			attr.Value = slog.StringValue(redacted)
		}
		return attr
	}
	members := attr.Value.Group()
	clean := make([]slog.Attr, len(members))
	for i, m := range members {
		clean[i] = redactAttr(m)
	}
	attr.Value = slog.GroupValue(clean...)
	return attr
}

func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	opts := slog.HandlerOptions{
		Level:     lvl,
		AddSource: addSource,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				attr.Key = "ts"
				if attr.Value.Kind() == slog.KindTime {
					attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
				}
			case slog.LevelKey:
				attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			case slog.SourceKey:
				if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
					attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
				}
			default:
				attr = redactAttr(attr)
			}
			return attr
		},
	}
	return slog.NewJSONHandler(w, &opts)
}
