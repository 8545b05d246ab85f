package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quizgen-service/internal/domain"
)

const maxWatchRetries = 3

// Store keeps quizzes in Redis. Layout:
//
//	SET  quiz:{id}              quiz JSON without answers
//	HSET quiz:{id}:answers      {questionID} {choice}
//	SET  quiz:{id}:submitted_at RFC 3339 timestamp
//
// All keys of a quiz share the TTL set at Save. A zero TTL keeps quizzes forever.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{
		client: client,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Store) Save(ctx context.Context, quiz domain.Quiz) error {
	stored := quiz
	stored.UserAnswers = nil
	stored.SubmittedAt = nil
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.quizKey(quiz.ID), data, s.ttlWithJitter())
	pipe.Del(ctx, s.answersKey(quiz.ID), s.submittedKey(quiz.ID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	return nil
}

func (s *Store) Fetch(ctx context.Context, quizID string) (domain.Quiz, error) {
	pipe := s.client.Pipeline()
	quizCmd := pipe.Get(ctx, s.quizKey(quizID))
	answersCmd := pipe.HGetAll(ctx, s.answersKey(quizID))
	submittedCmd := pipe.Get(ctx, s.submittedKey(quizID))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return domain.Quiz{}, fmt.Errorf("fetch quiz: %w", err)
	}

	raw, err := quizCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("fetch quiz: %w", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}

	submitted, err := submittedCmd.Result()
	if errors.Is(err, redis.Nil) {
		return quiz, nil
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("fetch submission time: %w", err)
	}
	at, err := time.Parse(time.RFC3339Nano, submitted)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("parse submission time: %w", err)
	}
	quiz.SubmittedAt = &at

	answers := answersCmd.Val()
	quiz.UserAnswers = make(domain.AnswerMap, len(answers))
	for questionID, choice := range answers {
		quiz.UserAnswers[questionID] = domain.ChoiceKey(choice)
	}
	return quiz, nil
}

// RecordAnswers replaces the answer hash in a transaction guarded by WATCH on the
// quiz key, so answers are never written for a quiz that does not (or no longer) exist.
func (s *Store) RecordAnswers(ctx context.Context, quizID string, answers domain.AnswerMap, submittedAt time.Time) error {
	key := s.quizKey(quizID)
	answersKey := s.answersKey(quizID)
	submittedKey := s.submittedKey(quizID)

	fields := make(map[string]interface{}, len(answers))
	for questionID, choice := range answers {
		fields[questionID] = string(choice)
	}

	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrQuizNotFound
		}
		ttl, err := tx.PTTL(ctx, key).Result()
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, answersKey)
			if len(fields) > 0 {
				pipe.HSet(ctx, answersKey, fields)
			}
			pipe.Set(ctx, submittedKey, submittedAt.UTC().Format(time.RFC3339Nano), 0)
			if ttl > 0 {
				pipe.PExpire(ctx, answersKey, ttl)
				pipe.PExpire(ctx, submittedKey, ttl)
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("record answers for %s: too much contention", quizID)
}

func (s *Store) quizKey(quizID string) string {
	return "quiz:" + quizID
}

func (s *Store) answersKey(quizID string) string {
	return "quiz:" + quizID + ":answers"
}

func (s *Store) submittedKey(quizID string) string {
	return "quiz:" + quizID + ":submitted_at"
}

func (s *Store) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	jitterMax := int64(s.ttl) / 10
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}
