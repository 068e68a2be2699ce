package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	consoleTimestampLayout = "2006-01-02 15:04:05"
	shortJobIDLen          = 8
)

// consoleHandler renders one line per record for a terminal:
//
//	2026-10-17 10:00:00 INFO  [studio] workflow · carousel#1a2b3c4d: job started event_type=job_started
//
// Mode, component, job kind and a shortened job id form the subject; every
// other attribute follows as key=value.
type consoleHandler struct {
	out    *lockedWriter
	level  *slog.LevelVar
	source bool
	fields []field // flattened WithAttrs, already redacted
	groups []string
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) write(p []byte) error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	_, err := lw.w.Write(p)
	return err
}

type field struct {
	key   string
	value slog.Value
}

// subject is the part of a console line that names what the record is about.
type subject struct {
	mode      string
	component string
	jobKind   string
	jobID     string
}

func (s *subject) take(f field) bool {
	switch f.key {
	case FieldMode:
		s.mode = valueText(f.value)
	case FieldComponent:
		if s.component == "" {
			s.component = valueText(f.value)
		}
	case FieldJobKind:
		s.jobKind = valueText(f.value)
	case FieldJobID:
		s.jobID = valueText(f.value)
	default:
		return false
	}
	return true
}

func (s subject) String() string {
	var b strings.Builder
	if s.mode != "" {
		b.WriteString("[" + s.mode + "] ")
	}
	job := s.jobKind
	if s.jobID != "" {
		id := s.jobID
		if len(id) > shortJobIDLen {
			id = id[:shortJobIDLen]
		}
		job += "#" + id
	}
	switch {
	case s.component != "" && job != "":
		b.WriteString(s.component + " · " + job)
	case s.component != "":
		b.WriteString(s.component)
	default:
		b.WriteString(job)
	}
	return strings.TrimSpace(b.String())
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{out: &lockedWriter{w: w}, level: lvl, source: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if !h.Enabled(context.Background(), record.Level) {
		return nil
	}
	at := record.Time
	if at.IsZero() {
		at = time.Now()
	}

	fields := make([]field, 0, len(h.fields)+record.NumAttrs())
	fields = append(fields, h.fields...)
	record.Attrs(func(attr slog.Attr) bool {
		fields = appendFlat(fields, h.groups, attr)
		return true
	})

	var subj subject
	rest := fields[:0]
	for _, f := range fields {
		if !subj.take(f) {
			rest = append(rest, f)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s ", at.In(time.Local).Format(consoleTimestampLayout), levelLabel(record.Level))
	if s := subj.String(); s != "" {
		b.WriteString(s + ": ")
	}
	if msg := strings.TrimSpace(record.Message); msg != "" {
		b.WriteString(msg)
	} else {
		b.WriteString("(no message)")
	}
	if h.source {
		if src := record.Source(); src != nil {
			fmt.Fprintf(&b, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	for _, f := range rest {
		if f.key != "" {
			b.WriteString(" " + f.key + "=" + quoted(valueText(f.value)))
		}
	}
	b.WriteByte('\n')
	return h.out.write([]byte(b.String()))
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.fields = append([]field(nil), h.fields...)
	for _, attr := range attrs {
		next.fields = appendFlat(next.fields, h.groups, attr)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	next := *h
	next.groups = append(append([]string(nil), h.groups...), name)
	return &next
}

// appendFlat flattens groups into dotted keys and redacts secrets.
func appendFlat(dst []field, prefix []string, attr slog.Attr) []field {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		if attr.Key != "" {
			prefix = append(append([]string(nil), prefix...), attr.Key)
		}
		for _, member := range attr.Value.Group() {
			dst = appendFlat(dst, prefix, member)
		}
		return dst
	}
	key := attr.Key
	if len(prefix) > 0 {
		key = strings.Join(prefix, ".") + "." + key
	}
	if isSecretKey(key) {
		attr.Value = slog.StringValue(redacted)
	}
	return append(dst, field{key: key, value: attr.Value})
}

// valueText renders v without quoting; errors use their message.
func valueText(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

func quoted(s string) string {
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
