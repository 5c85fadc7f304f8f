package httpadapter

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map"
	"golang.org/x/time/rate"
)

const (
	requestIDHeader = "X-Request-Id"

	// Client buckets idle this long are dropped once the table grows past
	// maxClientBuckets.
	clientBucketIdle = 10 * time.Minute
	maxClientBuckets = 4096
)

type requestIDContextKey struct{}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	requestID, _ := ctx.Value(requestIDContextKey{}).(string)
	return requestID
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDContextKey{}, requestID)))
	})
}

// accessLogMiddleware writes one http_request line per request. Chat
// requests are logged with the conversation header the router sets, so an
// answer can be traced back to its conversation without logging the query.
func accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(recorder, r)

		attrs := []slog.Attr{
			slog.String("request_id", requestIDFromContext(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", recorder.statusCode),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			slog.Int("bytes", recorder.bytesWritten),
			slog.String("client", clientKey(r)),
		}
		if conversationID := recorder.Header().Get(conversationHeader); conversationID != "" {
			attrs = append(attrs, slog.String("conversation_id", conversationID))
		}
		slog.LogAttrs(r.Context(), levelForStatus(recorder.statusCode), "http_request", attrs...)
	})
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

type rejectionRecorder func(reason string)

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// rateLimitMiddleware gives every client address its own token bucket so one
// busy integration cannot starve employees asking through other channels.
// rps <= 0 disables it.
func rateLimitMiddleware(next http.Handler, rps float64, burst int, onReject rejectionRecorder) http.Handler {
	if rps <= 0 {
		return next
	}
	if burst <= 0 {
		burst = int(math.Ceil(rps))
	}
	retryAfter := strconv.Itoa(int(math.Max(1, math.Ceil(1/rps))))
	buckets := cmap.New()

	bucketFor := func(key string, now time.Time) *clientBucket {
		value := buckets.Upsert(key, nil, func(exist bool, current interface{}, _ interface{}) interface{} {
			if exist {
				return current
			}
			return &clientBucket{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
		})
		bucket := value.(*clientBucket)
		bucket.lastSeen.Store(now.UnixNano())
		return bucket
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		if buckets.Count() > maxClientBuckets {
			pruneClientBuckets(buckets, now)
		}
		if !bucketFor(clientKey(r), now).limiter.AllowN(now, 1) {
			if onReject != nil {
				onReject("rate_limit")
			}
			w.Header().Set("Retry-After", retryAfter)
			writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func pruneClientBuckets(buckets cmap.ConcurrentMap, now time.Time) {
	cutoff := now.Add(-clientBucketIdle).UnixNano()
	for item := range buckets.IterBuffered() {
		buckets.RemoveCb(item.Key, func(_ string, v interface{}, exists bool) bool {
			return exists && v.(*clientBucket).lastSeen.Load() < cutoff
		})
	}
}

// clientKey identifies the caller: the first X-Forwarded-For hop when the
// API sits behind the chat gateway, else the remote host.
func clientKey(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// backpressureMiddleware admits at most maxInFlight requests; a request
// waits up to queueTimeout for a slot before it is rejected with 503.
func backpressureMiddleware(next http.Handler, maxInFlight int, queueTimeout time.Duration) http.Handler {
	return backpressureWithRecorder(next, maxInFlight, queueTimeout, nil)
}

func backpressureWithRecorder(next http.Handler, maxInFlight int, queueTimeout time.Duration, onReject rejectionRecorder) http.Handler {
	if maxInFlight <= 0 {
		return next
	}
	slots := make(chan struct{}, maxInFlight)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case slots <- struct{}{}:
		default:
			timer := time.NewTimer(queueTimeout)
			defer timer.Stop()
			select {
			case slots <- struct{}{}:
			case <-timer.C:
				if onReject != nil {
					onReject("backpressure")
				}
				w.Header().Set("Retry-After", "1")
				writeError(w, r, http.StatusServiceUnavailable, "assistant is busy, retry later")
				return
			case <-r.Context().Done():
				return
			}
		}
		defer func() { <-slots }()

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += n
	return n, err
}

func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
