package redis

import (
	"context"
	"sync"
	"time"

	"assessment-service/internal/lifecycle"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions and their countdowns live in process; Redis holds a liveness
// hash per session so other instances and operators can see who is
// currently taking which quiz:
//
//	HSET quiz:session:{sessionID} quiz {quizID} student {studentID}
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*lifecycle.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*lifecycle.Session),
	}
}

func (s *SessionStore) Put(session *lifecycle.Session) {
	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()

	ctx := context.Background()
	key := s.key(session.ID())
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, "quiz", session.QuizID(), "student", session.StudentID())
	if ttl := s.liveness(session); ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	// best-effort marker
	_, _ = pipe.Exec(ctx)
}

func (s *SessionStore) Get(sessionID string) (*lifecycle.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
}

// Open counts the unfinished sessions held by this instance.
func (s *SessionStore) Open(quizID, studentID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, session := range s.sessions {
		if session.QuizID() == quizID && session.StudentID() == studentID && session.State() != lifecycle.StateFinished {
			n++
		}
	}
	return n
}

// liveness keeps the marker at least as long as the countdown.
func (s *SessionStore) liveness(session *lifecycle.Session) time.Duration {
	countdown := time.Duration(session.Remaining()) * time.Second
	if countdown > s.ttl {
		return countdown + time.Minute
	}
	return s.ttl
}

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}
