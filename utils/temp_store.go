package utils

import (
	"context"
	"crypto/rand"
	"math/big"
	"sync"
	"time"
)

// Short-lived keys (revoked tokens, OAuth states, email codes, cooldowns) live in Redis
// when it is configured and in process memory otherwise (single instance only).

type memEntry struct {
	value     string
	expiresAt time.Time
}

var (
	memStore   = map[string]memEntry{}
	memStoreMu sync.Mutex
)

const getDelScript = `local v=redis.call('GET', KEYS[1]); if v then redis.call('DEL', KEYS[1]); end; return v`

// PutTemp stores value under key for ttl.
func PutTemp(key, value string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, key, value, ttl).Err(); err == nil {
			return
		}
	}
	memStoreMu.Lock()
	memStore[key] = memEntry{value: value, expiresAt: time.Now().Add(ttl)}
	memStoreMu.Unlock()
}

// PutTempNX stores value only when key is absent. It reports whether the key was set.
func PutTempNX(key, value string, ttl time.Duration) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		ok, err := rc.SetNX(ctx, key, value, ttl).Result()
		if err == nil {
			return ok
		}
		return true // fail-open
	}
	memStoreMu.Lock()
	defer memStoreMu.Unlock()
	if e, ok := memStore[key]; ok && time.Now().Before(e.expiresAt) {
		return false
	}
	memStore[key] = memEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return true
}

// GetTemp returns the value stored under key.
func GetTemp(key string) (string, bool) {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		v, err := rc.Get(ctx, key).Result()
		if err != nil {
			return "", false
		}
		return v, true
	}
	memStoreMu.Lock()
	defer memStoreMu.Unlock()
	e, ok := memStore[key]
	if !ok {
		return "", false
	}
	if time.Now().After(e.expiresAt) {
		delete(memStore, key)
		return "", false
	}
	return e.value, true
}

// TakeTemp returns and deletes the value stored under key, so it can be used once.
func TakeTemp(key string) (string, bool) {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// Prefer GETDEL (Redis >= 6.2), fall back to an atomic Lua GET+DEL
		if v, err := rc.GetDel(ctx, key).Result(); err == nil {
			return v, true
		}
		res, err := rc.Eval(ctx, getDelScript, []string{key}).Result()
		if err != nil || res == nil {
			return "", false
		}
		s, ok := res.(string)
		return s, ok
	}
	memStoreMu.Lock()
	defer memStoreMu.Unlock()
	e, ok := memStore[key]
	if !ok {
		return "", false
	}
	delete(memStore, key)
	if time.Now().After(e.expiresAt) {
		return "", false
	}
	return e.value, true
}

// BlacklistToken revokes a JWT until its natural expiration.
func BlacklistToken(token string, expiresAt time.Time) {
	PutTemp("jwt:blacklist:"+token, "1", time.Until(expiresAt))
}

// IsTokenBlacklisted reports whether a token was revoked before expiration.
func IsTokenBlacklisted(token string) bool {
	_, ok := GetTemp("jwt:blacklist:" + token)
	return ok
}

// SaveState stores an OAuth state token with TTL to mitigate CSRF.
func SaveState(state string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	PutTemp("oauth:state:"+state, "1", ttl)
}

// ConsumeState validates and removes a state token.
func ConsumeState(state string) bool {
	v, ok := TakeTemp("oauth:state:" + state)
	return ok && v != ""
}

// GenerateVerificationCode creates a numeric code with given length.
func GenerateVerificationCode(n int) string {
	if n <= 0 {
		n = 6
	}
	digits := make([]byte, n)
	for i := 0; i < n; i++ {
		v, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			v = big.NewInt(time.Now().UnixNano() % 10)
		}
		digits[i] = byte('0' + v.Int64())
	}
	return string(digits)
}

// SaveCode stores an email verification code.
func SaveCode(email, code string, ttl time.Duration) {
	PutTemp("verify:email:"+email, code, ttl)
}

// VerifyAndConsumeCode consumes the stored code when code matches it.
// A wrong guess leaves the code in place until it expires.
func VerifyAndConsumeCode(email, code string) bool {
	key := "verify:email:" + email
	if v, ok := GetTemp(key); !ok || code == "" || v != code {
		return false
	}
	// only one of two concurrent matching requests gets the value back
	v, ok := TakeTemp(key)
	return ok && v == code
}

// CooldownTry starts a cooldown for scope/key. It returns false while one is running.
func CooldownTry(scope, key string, cooldown time.Duration) bool {
	if cooldown <= 0 {
		return true
	}
	return PutTempNX("cooldown:"+scope+":"+key, "1", cooldown)
}
