// Package memory implements the repositories in process memory. It backs the
// "memory" store driver for local runs and every service and handler test.
package memory

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/arzan03/coursehub/internal/apperr"
	"github.com/arzan03/coursehub/internal/db"
)

// table is a mutex-guarded map of documents keyed by K.
type table[K comparable, T any] struct {
	mu   sync.RWMutex
	rows map[K]T
	what string
}

func newTable[K comparable, T any](what string) *table[K, T] {
	return &table[K, T]{rows: make(map[K]T), what: what}
}

func (t *table[K, T]) insert(k K, v T) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[k]; ok {
		return errors.Wrap(apperr.ErrConflict, t.what)
	}
	t.rows[k] = v
	return nil
}

// insertUnique inserts v unless an existing row collides according to same.
func (t *table[K, T]) insertUnique(k K, v T, same func(a, b T) bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[k]; ok {
		return errors.Wrap(apperr.ErrConflict, t.what)
	}
	for _, row := range t.rows {
		if same(row, v) {
			return errors.Wrap(apperr.ErrConflict, t.what)
		}
	}
	t.rows[k] = v
	return nil
}

func (t *table[K, T]) get(k K) (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.rows[k]
	if !ok {
		var zero T
		return zero, errors.Wrap(apperr.ErrNotFound, t.what)
	}
	return v, nil
}

func (t *table[K, T]) first(match func(T) bool) (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, v := range t.rows {
		if match(v) {
			return v, nil
		}
	}
	var zero T
	return zero, errors.Wrap(apperr.ErrNotFound, t.what)
}

func (t *table[K, T]) replace(k K, v T) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[k]; !ok {
		return errors.Wrap(apperr.ErrNotFound, t.what)
	}
	t.rows[k] = v
	return nil
}

// modify applies fn to the row under the write lock and returns the result.
func (t *table[K, T]) modify(k K, fn func(*T)) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.rows[k]
	if !ok {
		var zero T
		return zero, errors.Wrap(apperr.ErrNotFound, t.what)
	}
	fn(&v)
	t.rows[k] = v
	return v, nil
}

func (t *table[K, T]) upsert(k K, v T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows[k] = v
}

func (t *table[K, T]) remove(k K) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[k]; !ok {
		return errors.Wrap(apperr.ErrNotFound, t.what)
	}
	delete(t.rows, k)
	return nil
}

// removeWhere deletes every matching row and returns how many went.
func (t *table[K, T]) removeWhere(match func(T) bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for k, v := range t.rows {
		if match(v) {
			delete(t.rows, k)
			n++
		}
	}
	return n
}

// update applies fn to every matching row and returns how many changed.
func (t *table[K, T]) update(match func(T) bool, fn func(*T)) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for k, v := range t.rows {
		if match(v) {
			fn(&v)
			t.rows[k] = v
			n++
		}
	}
	return n
}

func (t *table[K, T]) filter(match func(T) bool, less func(a, b T) bool) []T {
	t.mu.RLock()
	out := make([]T, 0, len(t.rows))
	for _, v := range t.rows {
		if match == nil || match(v) {
			out = append(out, v)
		}
	}
	t.mu.RUnlock()
	if less != nil {
		sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	}
	return out
}

func (t *table[K, T]) page(match func(T) bool, less func(a, b T) bool, p db.Page) ([]T, int64) {
	all := t.filter(match, less)
	p = p.Normalize()
	total := int64(len(all))
	start := p.Skip()
	if start >= total {
		return []T{}, total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}
	return all[start:end], total
}

func (t *table[K, T]) count(match func(T) bool) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var n int64
	for _, v := range t.rows {
		if match == nil || match(v) {
			n++
		}
	}
	return n
}
