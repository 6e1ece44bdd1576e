package extract

import (
	"log/slog"

	"github.com/mohae/deepcopy"
)

// Record is the structured output of one parse. Its top-level keys are
// exactly the keys of the schema template.
type Record map[string]any

// Merger owns the record of a single parse. It starts as a deep copy of the
// template and only ever overwrites keys the template declares.
type Merger struct {
	rec     Record
	cleared map[string]bool
	log     *slog.Logger
}

// NewMerger deep-copies template into a fresh record.
func NewMerger(template map[string]any, log *slog.Logger) *Merger {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	rec, _ := deepcopy.Copy(template).(map[string]any)
	if rec == nil {
		rec = map[string]any{}
	}
	return &Merger{rec: rec, cleared: make(map[string]bool), log: log}
}

// Record returns the record being built. The caller owns it once parsing ends.
func (m *Merger) Record() Record { return m.rec }

func (m *Merger) known(key string) bool {
	if _, ok := m.rec[key]; !ok {
		m.log.Debug("refusing write to key outside template", "key", key)
		return false
	}
	return true
}

// Merge replaces the value at key.
func (m *Merger) Merge(key string, value any) bool {
	if !m.known(key) {
		return false
	}
	m.rec[key] = value
	return true
}

// nested returns the mapping at key, replacing a nil default with a new map.
func (m *Merger) nested(key string) (map[string]any, bool) {
	if !m.known(key) {
		return nil, false
	}
	switch v := m.rec[key].(type) {
	case map[string]any:
		return v, true
	case nil:
		mp := map[string]any{}
		m.rec[key] = mp
		return mp, true
	}
	m.log.Debug("key is not a mapping", "key", key)
	return nil, false
}

// SetField writes field inside the mapping at key.
func (m *Merger) SetField(key, field string, value any) bool {
	mp, ok := m.nested(key)
	if !ok {
		return false
	}
	mp[field] = value
	return true
}

// AppendField appends values to the sequence field inside the mapping at
// key. The template default is discarded on the first append of a parse.
func (m *Merger) AppendField(key, field string, values ...string) bool {
	mp, ok := m.nested(key)
	if !ok {
		return false
	}
	path := key + "." + field
	seq, _ := mp[field].([]string)
	if !m.cleared[path] {
		seq = make([]string, 0, len(values))
		m.cleared[path] = true
	}
	mp[field] = append(seq, values...)
	return true
}

// Clear replaces the collection at key with an empty sequence. It runs at
// most once per key, so entries appended afterwards survive.
func (m *Merger) Clear(key string) {
	if m.cleared[key] || !m.known(key) {
		return
	}
	m.rec[key] = []any{}
	m.cleared[key] = true
}

// Append adds entry to the collection at key, clearing the template default
// first if that has not happened yet.
func (m *Merger) Append(key string, entry map[string]any) bool {
	if !m.known(key) {
		return false
	}
	m.Clear(key)
	seq, _ := m.rec[key].([]any)
	m.rec[key] = append(seq, entry)
	return true
}
