// Package presence обновляет last_seen пользователя не чаще заданного интервала.
package presence

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/senyabanana/freelance-service/internal/auth"
	"github.com/senyabanana/freelance-service/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Gate решает, пора ли писать last_seen для пользователя.
type Gate interface {
	Allow(ctx context.Context, userID uuid.UUID, window time.Duration) (bool, error)
}

// RedisGate - общий для всех реплик шлюз на SET NX PX.
type RedisGate struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisGate(client redis.UniversalClient, prefix string) *RedisGate {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "freelance:last_seen"
	}
	return &RedisGate{client: client, prefix: prefix}
}

func (g *RedisGate) Allow(ctx context.Context, userID uuid.UUID, window time.Duration) (bool, error) {
	key := fmt.Sprintf("%s:%s", g.prefix, userID)
	ok, err := g.client.SetNX(ctx, key, 1, window).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// LocalGate - шлюз в памяти процесса, когда Redis не настроен.
type LocalGate struct {
	mu     sync.Mutex
	seen   map[uuid.UUID]time.Time
	pruned time.Time
	now    func() time.Time
}

func NewLocalGate() *LocalGate {
	return &LocalGate{seen: make(map[uuid.UUID]time.Time), now: time.Now}
}

func (g *LocalGate) Allow(_ context.Context, userID uuid.UUID, window time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if now.Sub(g.pruned) >= window {
		for id, last := range g.seen {
			if now.Sub(last) >= window {
				delete(g.seen, id)
			}
		}
		g.pruned = now
	}
	if last, ok := g.seen[userID]; ok && now.Sub(last) < window {
		return false, nil
	}
	g.seen[userID] = now
	return true, nil
}

// Tracker пишет last_seen вне транзакции запроса, ошибки только логируются.
type Tracker struct {
	Users  repository.UserRepository
	Gate   Gate
	Window time.Duration
	Logger *zap.Logger
	now    func() time.Time
}

func NewTracker(users repository.UserRepository, gate Gate, window time.Duration, logger *zap.Logger) *Tracker {
	return &Tracker{Users: users, Gate: gate, Window: window, Logger: logger, now: time.Now}
}

// Touch обновляет last_seen, если с прошлой записи прошло больше Window.
func (t *Tracker) Touch(ctx context.Context, userID uuid.UUID) {
	allowed, err := t.Gate.Allow(ctx, userID, t.Window)
	if err != nil {
		t.Logger.Warn("last seen gate failed", zap.Stringer("user_id", userID), zap.Error(err))
		return
	}
	if !allowed {
		return
	}
	if err := t.Users.TouchLastSeen(ctx, userID, t.now().UTC()); err != nil {
		t.Logger.Warn("failed to update last seen", zap.Stringer("user_id", userID), zap.Error(err))
	}
}

// Middleware вызывает Touch после обработки аутентифицированного запроса.
func (t *Tracker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		if principal, ok := auth.FromContext(r.Context()); ok {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), time.Second)
			defer cancel()
			t.Touch(ctx, principal.UserID)
		}
	})
}
