package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quizgen-service/internal/domain"
)

// QuizStore is the backing store being cached (Postgres, Mongo, ...).
type QuizStore interface {
	Save(ctx context.Context, quiz domain.Quiz) error
	Fetch(ctx context.Context, quizID string) (domain.Quiz, error)
	RecordAnswers(ctx context.Context, quizID string, answers domain.AnswerMap, submittedAt time.Time) error
}

// CachedStore is a read-through cache with TTL in front of a slower store.
// Writes go to the backing store first; answers invalidate the cached entry.
// Every write bumps the quiz generation, and a load that started under an older
// generation is returned to its callers but never cached.
type CachedStore struct {
	next  QuizStore
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand
	rndMu sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedQuiz
	gens  map[string]uint64
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewCachedStore(next QuizStore, ttl time.Duration) *CachedStore {
	return &CachedStore{
		next:  next,
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		cache: make(map[string]cachedQuiz),
		gens:  make(map[string]uint64),
	}
}

func (r *CachedStore) Save(ctx context.Context, quiz domain.Quiz) error {
	if err := r.next.Save(ctx, quiz); err != nil {
		return err
	}
	r.Invalidate(quiz.ID)
	r.put(quiz, r.generation(quiz.ID))
	return nil
}

func (r *CachedStore) Fetch(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.get(quizID); ok {
		return quiz, nil
	}

	// The flight is shared, so one caller's cancellation must not fail the others.
	flightCtx := context.WithoutCancel(ctx)
	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check in case a concurrent call filled it.
		if quiz, ok := r.get(quizID); ok {
			return quiz, nil
		}
		gen := r.generation(quizID)
		quiz, err := r.next.Fetch(flightCtx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		r.put(quiz, gen)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return clone(result.(domain.Quiz)), nil
}

func (r *CachedStore) RecordAnswers(ctx context.Context, quizID string, answers domain.AnswerMap, submittedAt time.Time) error {
	err := r.next.RecordAnswers(ctx, quizID, answers, submittedAt)
	r.Invalidate(quizID)
	return err
}

// Invalidate drops a cached quiz and detaches callers from any load already in
// flight, so the next Fetch reads the backing store again.
func (r *CachedStore) Invalidate(quizID string) {
	r.mu.Lock()
	delete(r.cache, quizID)
	r.gens[quizID]++
	r.mu.Unlock()
	r.sf.Forget(quizID)
}

func (r *CachedStore) generation(quizID string) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gens[quizID]
}

func (r *CachedStore) get(quizID string) (domain.Quiz, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[quizID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Quiz{}, false
	}
	return clone(entry.quiz), true
}

// put caches quiz unless a write happened after generation gen was read.
func (r *CachedStore) put(quiz domain.Quiz, gen uint64) {
	ttl := r.ttlWithJitter()
	if ttl <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gens[quiz.ID] != gen {
		return
	}
	r.cache[quiz.ID] = cachedQuiz{quiz: clone(quiz), expiresAt: r.clock().Add(ttl)}
}

func (r *CachedStore) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
