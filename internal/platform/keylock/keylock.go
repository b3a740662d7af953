// Package keylock fornece exclusão mútua por chave (ex: celular da conta).
package keylock

import (
	"slices"
	"sync"
)

// Locker mantém um mutex por chave com contagem de referência, para que
// entradas ociosas sejam removidas e o mapa não cresça sem limite.
type Locker struct {
	mu    sync.Mutex
	byKey map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func New() *Locker {
	return &Locker{byKey: make(map[string]*entry)}
}

// Lock trava todas as chaves na ordem natural (lexicográfica) e sem repetição.
// A ordem global fixa evita deadlock entre A->B e B->A concorrentes.
// O retorno destrava tudo, na ordem inversa.
func (l *Locker) Lock(keys ...string) (unlock func()) {
	ordered := slices.Clone(keys)
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)

	held := make([]*entry, 0, len(ordered))
	for _, k := range ordered {
		e := l.acquire(k)
		e.mu.Lock()
		held = append(held, e)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(held) - 1; i >= 0; i-- {
				held[i].mu.Unlock()
				l.release(ordered[i])
			}
		})
	}
}

func (l *Locker) acquire(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.byKey[key]
	if !ok {
		e = &entry{}
		l.byKey[key] = e
	}
	e.refs++
	return e
}

func (l *Locker) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.byKey[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs == 0 {
		delete(l.byKey, key)
	}
}

// Size retorna quantas chaves estão travadas ou aguardando.
func (l *Locker) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byKey)
}
