package index

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/besra/killfeed/internal/store"
)

// Entry is one persisted ledger row. Created only by a successful claim,
// never mutated in place, removed only by reconciliation.
type Entry struct {
	ID     int64  `json:"id"`
	Hash   string `json:"hash"`
	Posted bool   `json:"posted"`
}

// FileIndex keeps the ledger in an atomically-written JSON file. The mutex
// covers the whole read-modify-write of every operation so a claim can never
// interleave with a reconcile, which is the entire at-most-once guarantee
// under the single-instance assumption.
type FileIndex struct {
	mu      sync.Mutex
	file    *store.JSONFile
	entries []Entry
}

func OpenFile(file *store.JSONFile) (*FileIndex, error) {
	idx := &FileIndex{file: file}
	if err := file.Load(&idx.entries); err != nil {
		return nil, fmt.Errorf("load claim ledger: %w", err)
	}
	log.Debug().Int("entries", len(idx.entries)).Str("path", file.Path()).Msg("Claim ledger loaded")
	return idx, nil
}

func (x *FileIndex) Claim(ctx context.Context, id int64, hash string) (bool, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	for _, e := range x.entries {
		if e.ID == id && e.Hash == hash {
			return false, nil
		}
	}

	x.entries = append(x.entries, Entry{ID: id, Hash: hash, Posted: true})
	if err := x.file.Save(x.entries); err != nil {
		// claim is not durable: roll back so a later retry can win it
		x.entries = x.entries[:len(x.entries)-1]
		return false, fmt.Errorf("persist claim: %w", err)
	}
	return true, nil
}

func (x *FileIndex) Reconcile(ctx context.Context, current map[Key]struct{}) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	kept := x.entries[:0:0]
	for _, e := range x.entries {
		if _, ok := current[Key{ID: e.ID, Hash: e.Hash}]; ok {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(x.entries) {
		return nil
	}
	if err := x.file.Save(kept); err != nil {
		return fmt.Errorf("persist reconciled ledger: %w", err)
	}
	log.Info().Int("pruned", len(x.entries)-len(kept)).Int("kept", len(kept)).Msg("Claim ledger reconciled")
	x.entries = kept
	return nil
}

func (x *FileIndex) Snapshot(ctx context.Context) (map[Key]struct{}, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	out := make(map[Key]struct{}, len(x.entries))
	for _, e := range x.entries {
		out[Key{ID: e.ID, Hash: e.Hash}] = struct{}{}
	}
	return out, nil
}
