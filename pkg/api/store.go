package api

import (
	"sync"

	"github.com/google/uuid"

	"github.com/james-see/scorestream/pkg/common"
	"github.com/james-see/scorestream/pkg/stream"
)

// storedScore guards one score. Queries record site entries on the elements they
// touch, so even reads take the lock.
type storedScore struct {
	mu    sync.Mutex
	name  string
	score *stream.Stream
}

// with runs fn while holding the score's lock.
func (s *storedScore) with(fn func(score *stream.Stream) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.score)
}

// store keeps uploaded scores in memory under generated ids.
type store struct {
	mu     sync.RWMutex
	scores map[string]*storedScore
}

func newStore() *store {
	return &store{scores: make(map[string]*storedScore)}
}

func (st *store) add(name string, score *stream.Stream) string {
	id := uuid.New().String()
	st.mu.Lock()
	st.scores[id] = &storedScore{name: name, score: score}
	st.mu.Unlock()
	return id
}

func (st *store) get(id string) (*storedScore, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.scores[id]
	if !ok {
		return nil, common.NotFoundf("no score with id %q", id)
	}
	return s, nil
}

func (st *store) remove(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.scores[id]; !ok {
		return common.NotFoundf("no score with id %q", id)
	}
	delete(st.scores, id)
	return nil
}

func (st *store) len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.scores)
}
