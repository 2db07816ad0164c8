package router

import (
	"context"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/senyabanana/procurement-service/internal/handlers"
	"github.com/senyabanana/procurement-service/internal/metrics"
	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const requestIDHeader = "X-Request-ID"

// Authenticator проверяет токен и возвращает пользователя запроса.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.Actor, error)
}

type middleware func(http.Handler) http.Handler

// chain оборачивает handler так, что первый middleware оказывается внешним.
func chain(handler http.Handler, middlewares ...middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func accessLog(log zerolog.Logger) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			reqLog := log.With().Str("request_id", w.Header().Get(requestIDHeader)).Logger()

			next.ServeHTTP(rec, r.WithContext(reqLog.WithContext(r.Context())))

			elapsed := time.Since(start)
			metrics.ObserveRequest(r.Method, rec.status, elapsed)
			event := reqLog.Info()
			if rec.status >= http.StatusInternalServerError {
				event = reqLog.Error()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("elapsed", elapsed).
				Msg("request handled")
		})
	}
}

func recoverPanic(log zerolog.Logger) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					zerolog.Ctx(r.Context()).Error().
						Interface("panic", p).
						Bytes("stack", debug.Stack()).
						Msg("handler panicked")
					utils.SendErrorResponse(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func requireAuth(authenticator Authenticator, log zerolog.Logger) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				utils.SendServiceError(w, log, models.Unauthenticated("missing bearer token"), "")
				return
			}
			actor, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				utils.SendServiceError(w, log, err, "failed to authenticate")
				return
			}
			next.ServeHTTP(w, r.WithContext(handlers.WithActor(r.Context(), actor)))
		})
	}
}
