package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
)

type actorKey struct{}

// WithActor кладет пользователя, от имени которого идет запрос, в контекст.
func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom достает пользователя из контекста.
func ActorFrom(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(models.Actor)
	return actor, ok
}

func requestActor(r *http.Request) (models.Actor, error) {
	actor, ok := ActorFrom(r.Context())
	if !ok {
		return models.Actor{}, models.Unauthenticated("authentication required")
	}
	return actor, nil
}

// queryList читает параметр, заданный несколько раз или через запятую.
func queryList[T ~string](r *http.Request, key string) []T {
	var out []T
	for _, raw := range r.URL.Query()[key] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, T(v))
			}
		}
	}
	return out
}

// queryTime читает дату в формате RFC 3339 или YYYY-MM-DD.
func queryTime(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, models.ValidationFailed("invalid %s parameter, expected RFC 3339 or YYYY-MM-DD", key)
}

func pathInt(r *http.Request, key string) (int, error) {
	n, err := strconv.Atoi(r.PathValue(key))
	if err != nil || n < 1 {
		return 0, models.ValidationFailed("invalid %s, must be a positive integer", key)
	}
	return n, nil
}
