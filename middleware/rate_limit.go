package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/pedulirasa/backend/utils"
)

const limiterIdleTTL = 5 * time.Minute

type visitor struct {
	limiter *rate.Limiter
	expires time.Time
}

// limiterStore keeps one token bucket per client IP.
type limiterStore struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

func newLimiterStore(perMinute int) *limiterStore {
	if perMinute < 1 {
		perMinute = 1
	}
	burst := perMinute / 2
	if burst < 1 {
		burst = 1
	}
	return &limiterStore{
		visitors: map[string]*visitor{},
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		now:      time.Now,
	}
}

func (s *limiterStore) allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, v := range s.visitors {
		if now.After(v.expires) {
			delete(s.visitors, k)
		}
	}
	v, ok := s.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.visitors[key] = v
	}
	v.expires = now.Add(limiterIdleTTL)
	return v.limiter.AllowN(now, 1)
}

// RateLimit limits each client IP to perMinute requests with a burst of half that.
// Every call builds an independent bucket set, so route groups can use different limits.
func RateLimit(perMinute int) gin.HandlerFunc {
	store := newLimiterStore(perMinute)
	return func(ctx *gin.Context) {
		if !store.allow(ctx.ClientIP()) {
			utils.Abort(ctx, http.StatusTooManyRequests, 42901, "rate limit exceeded")
			return
		}
		ctx.Next()
	}
}
