package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Snapshot is the immutable, fully loaded registry. It lives for the whole process.
type Snapshot struct {
	table       Table
	source      string
	loadedAt    time.Time
	fingerprint string
}

// NewSnapshot freezes a copy of table.
func NewSnapshot(source string, table Table, loadedAt time.Time) *Snapshot {
	frozen := table.Clone()
	return &Snapshot{table: frozen, source: source, loadedAt: loadedAt, fingerprint: fingerprint(frozen)}
}

// Table returns a copy of the rows; callers may filter it freely.
func (s *Snapshot) Table() Table {
	if s == nil {
		return Table{}
	}
	return s.table.Clone()
}

// Len returns the number of loaded rows.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.table)
}

// Source names where the rows came from.
func (s *Snapshot) Source() string {
	if s == nil {
		return ""
	}
	return s.source
}

// LoadedAt reports when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.loadedAt
}

// Fingerprint identifies the row content. Two processes that loaded the same data
// agree on it, so it can key shared caches.
func (s *Snapshot) Fingerprint() string {
	if s == nil {
		return ""
	}
	return s.fingerprint
}

func fingerprint(t Table) string {
	h := sha256.New()
	for _, c := range t {
		capital := ""
		if c.Capital.Valid {
			capital = c.Capital.Decimal.String()
		}
		closed := ""
		if c.HasClosed() {
			closed = c.Closed.Format(time.DateOnly)
		}
		fmt.Fprintf(h, "%s\x1f%s\x1f%s\x1f%s\x1f%s\x1f%s\x1f%s\x1f%s\x1f%s\x1f%s\x1f%g\x1f%g\x1f%s\x1e",
			c.Name, c.LegalType, c.TaxID, c.ActivityCode, c.Market, c.Address,
			c.Started.Format(time.DateOnly), closed, c.Status, capital,
			c.Latitude, c.Longitude, c.Links)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Load reads source once and returns a snapshot of it.
func Load(ctx context.Context, source Source) (*Snapshot, error) {
	if source == nil {
		return nil, fmt.Errorf("registry: source required")
	}
	table, err := source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry: load %s: %w", source.Name(), err)
	}
	return NewSnapshot(source.Name(), table, time.Now().UTC()), nil
}

// Store performs the one-time load and hands the same snapshot to every reader.
// There is no invalidation: the source is assumed static for the process lifetime.
type Store struct {
	source Source
	logger *slog.Logger

	once sync.Once
	snap *Snapshot
	err  error
}

// NewStore wires a Store around source.
func NewStore(source Source, logger *slog.Logger) *Store {
	return &Store{source: source, logger: logger}
}

// Snapshot returns the shared snapshot, loading it on first use. A failed load is
// remembered and returned to later callers.
func (s *Store) Snapshot(ctx context.Context) (*Snapshot, error) {
	s.once.Do(func() {
		start := time.Now()
		s.snap, s.err = Load(ctx, s.source)
		if s.err != nil {
			return
		}
		if s.logger != nil {
			s.logger.Info("registry loaded",
				slog.String("source", s.snap.Source()),
				slog.Int("companies", s.snap.Len()),
				slog.Duration("duration", time.Since(start)))
		}
	})
	return s.snap, s.err
}
