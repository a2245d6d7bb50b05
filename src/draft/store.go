package draft

import (
	"context"
	"errors"
	"sync"

	"onboarding_flow/pkg"
	"onboarding_flow/src/logger"
	"onboarding_flow/src/storage"

	"github.com/rs/zerolog"
)

// Store keeps one draft record per flow key and writes every change through
// to the persistence surface. The in-memory copy is authoritative for the
// lifetime of the Store, so a failed write never loses submitted answers.
type Store struct {
	storage storage.Storage
	log     zerolog.Logger

	mu      sync.Mutex
	records map[string]pkg.Record
	// pending holds updates merged while the durable record could not be
	// read; they are applied on top of it once a read succeeds.
	pending map[string]pkg.Record
}

// NewStore creates a draft store over the given persistence surface
func NewStore(s storage.Storage) *Store {
	return &Store{
		storage: s,
		log:     logger.Component("draft"),
		records: make(map[string]pkg.Record),
		pending: make(map[string]pkg.Record),
	}
}

// Load returns the draft for flowKey. Absent keys yield an empty record with
// no error; read and parse failures yield the in-memory record (or an empty
// one) together with a *PersistenceError.
func (s *Store) Load(ctx context.Context, flowKey string) (pkg.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.load(ctx, flowKey)
	return record.Clone(), err
}

// Merge shallow-merges partial into the draft for flowKey and persists the
// result before returning. The merged record is returned even when the write
// fails; the error is then a *PersistenceError. When the durable record cannot
// be read, nothing is written: partial is held and applied on top of the
// durable record at the next successful read.
func (s *Store) Merge(ctx context.Context, flowKey string, partial pkg.Record) (pkg.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	base, err := s.load(ctx, flowKey)
	var perr *PersistenceError
	if errors.As(err, &perr) && perr.Op == "load" {
		// the durable record is unknown, writing now would overwrite it
		pending := s.pending[flowKey].Merge(partial)
		s.pending[flowKey] = pending
		return pending.Clone(), err
	}
	merged := base.Merge(partial)
	s.records[flowKey] = merged

	if err := s.persist(ctx, flowKey, merged); err != nil {
		return merged.Clone(), err
	}

	s.log.Debug().
		Str("flow_key", flowKey).
		Int("fields", len(merged)).
		Msg("draft merged")
	return merged.Clone(), nil
}

// Clear removes the persisted draft and resets the in-memory record to empty
func (s *Store) Clear(ctx context.Context, flowKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[flowKey] = pkg.NewRecord()
	delete(s.pending, flowKey)

	if err := s.storage.Remove(ctx, flowKey); err != nil {
		return s.fail("clear", flowKey, err)
	}

	s.log.Debug().Str("flow_key", flowKey).Msg("draft cleared")
	return nil
}

// load must be called with s.mu held
func (s *Store) load(ctx context.Context, flowKey string) (pkg.Record, error) {
	if record, ok := s.records[flowKey]; ok {
		return record, nil
	}

	raw, err := s.storage.Get(ctx, flowKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return s.cache(flowKey, pkg.NewRecord()), nil
		}
		// not cached, so a later Load retries the read
		return s.pending[flowKey].Clone(), s.fail("load", flowKey, err)
	}

	record, err := Decode(raw)
	if err != nil {
		return s.cache(flowKey, pkg.NewRecord()), s.fail("decode", flowKey, err)
	}

	return s.cache(flowKey, record), nil
}

// cache stores the record read for flowKey, with any pending updates applied.
// Must be called with s.mu held.
func (s *Store) cache(flowKey string, record pkg.Record) pkg.Record {
	if pending, ok := s.pending[flowKey]; ok {
		record = record.Merge(pending)
		delete(s.pending, flowKey)
	}
	s.records[flowKey] = record
	return record
}

func (s *Store) persist(ctx context.Context, flowKey string, record pkg.Record) error {
	raw, err := Encode(record)
	if err != nil {
		return s.fail("encode", flowKey, err)
	}
	if err := s.storage.Set(ctx, flowKey, raw); err != nil {
		return s.fail("save", flowKey, err)
	}
	return nil
}

func (s *Store) fail(op, flowKey string, err error) error {
	s.log.Warn().
		Err(err).
		Str("op", op).
		Str("flow_key", flowKey).
		Msg("draft persistence failed, keeping in-memory record")
	return &PersistenceError{Op: op, Key: flowKey, Err: err}
}
