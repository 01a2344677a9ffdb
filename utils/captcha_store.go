package utils

import (
	"time"

	"github.com/mojocn/base64Captcha"
)

// tempCaptchaStore implements base64Captcha.Store on top of the temp store,
// so captchas survive across instances when Redis is configured.
type tempCaptchaStore struct {
	ttl time.Duration
}

// NewTempCaptchaStore returns a captcha store with the given answer TTL.
func NewTempCaptchaStore(ttl time.Duration) base64Captcha.Store {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &tempCaptchaStore{ttl: ttl}
}

func (s *tempCaptchaStore) key(id string) string {
	return "captcha:" + id
}

func (s *tempCaptchaStore) Set(id string, value string) error {
	PutTemp(s.key(id), value, s.ttl)
	return nil
}

func (s *tempCaptchaStore) Get(id string, clear bool) string {
	var v string
	if clear {
		v, _ = TakeTemp(s.key(id))
	} else {
		v, _ = GetTemp(s.key(id))
	}
	return v
}

func (s *tempCaptchaStore) Verify(id, answer string, clear bool) bool {
	v := s.Get(id, clear)
	return v != "" && v == answer
}
