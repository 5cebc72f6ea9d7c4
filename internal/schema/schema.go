// Package schema holds the table/column/key model extracted from DDL text and
// the in-memory store that keeps one schema per database key.
package schema

import (
	"strings"
	"sync"
)

// Column is a single column declaration. Duplicate names within a table are
// retained in declaration order; the extractor is deliberately tolerant.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ForeignKey links constrained columns to columns of a referred table. The
// referred table may be absent from the schema; consumers must handle that.
type ForeignKey struct {
	ConstrainedColumns []string `json:"constrained_columns"`
	ReferredTable      string   `json:"referred_table"`
	ReferredColumns    []string `json:"referred_columns"`
}

// TableInfo describes one table.
type TableInfo struct {
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	PrimaryKeys []string     `json:"primary_keys"`
	ForeignKeys []ForeignKey `json:"foreign_keys"`
}

// Schema is the root entity produced by one upload. Tables keep DDL order so
// that edge building, shortlist fallbacks and tie-breaks stay deterministic.
type Schema struct {
	Tables      []*TableInfo `json:"tables"`
	Dialect     string       `json:"dialect,omitempty"`
	ParseErrors []string     `json:"parse_errors,omitempty"`
}

// Table returns the table with the given name, matched case-insensitively.
func (s *Schema) Table(name string) *TableInfo {
	n := normalizeName(name)
	for _, t := range s.Tables {
		if normalizeName(t.Name) == n {
			return t
		}
	}
	return nil
}

// ResolveTable returns the exact stored table name for a case-insensitive
// lookup, or "" when the table is unknown.
func (s *Schema) ResolveTable(name string) string {
	if t := s.Table(name); t != nil {
		return t.Name
	}
	return ""
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(name), "`\""))
}

// addTable appends a table unless one with the same name already exists, in
// which case the existing entry is returned. Table names are unique per schema.
func (s *Schema) addTable(name string) *TableInfo {
	if t := s.Table(name); t != nil {
		return t
	}
	t := &TableInfo{Name: name}
	s.Tables = append(s.Tables, t)
	return t
}

// Store caches schemas by database key for the lifetime of the process.
// Writes replace the whole schema object, so a read racing an upload observes
// either the old or the new schema, never a mix.
type Store struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}

// NewStore creates an empty schema store.
func NewStore() *Store {
	return &Store{schemas: make(map[string]*Schema)}
}

// Get returns the schema stored under key, or nil.
func (st *Store) Get(key string) *Schema {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.schemas[key]
}

// Put stores a schema under key. The most recent upload wins.
func (st *Store) Put(key string, s *Schema) {
	st.mu.Lock()
	st.schemas[key] = s
	st.mu.Unlock()
}

// Keys returns the known database keys.
func (st *Store) Keys() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	keys := make([]string, 0, len(st.schemas))
	for k := range st.schemas {
		keys = append(keys, k)
	}
	return keys
}
