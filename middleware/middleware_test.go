package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pedulirasa/backend/config"
	"github.com/pedulirasa/backend/models"
	"github.com/pedulirasa/backend/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setup(t *testing.T) {
	t.Helper()
	config.Override(config.AppConfig{JWTSecret: "mw-secret", AdminEmails: []string{"Admin@Example.com"}})
	utils.SetRedis(nil)
}

func whoami(c *gin.Context) {
	id, ok := CurrentUserID(c)
	c.JSON(http.StatusOK, gin.H{"id": id, "ok": ok})
}

func TestAuthRequired(t *testing.T) {
	setup(t)
	r := gin.New()
	r.GET("/me", AuthRequired(), whoami)

	tok, err := utils.GenerateToken(5, "u@example.com", time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer abc", http.StatusUnauthorized},
		{"valid", "Bearer " + tok, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}

	utils.BlacklistToken(tok, time.Now().Add(time.Hour))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "40104")
}

func TestAuthOptional(t *testing.T) {
	setup(t)
	r := gin.New()
	r.GET("/me", AuthOptional(), whoami)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":0,"ok":false}`, w.Body.String())

	tok, err := utils.GenerateToken(9, "u@example.com", time.Hour)
	require.NoError(t, err)
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	r.ServeHTTP(w, req)
	assert.JSONEq(t, `{"id":9,"ok":true}`, w.Body.String())
}

func TestAdminRequired(t *testing.T) {
	setup(t)
	r := gin.New()
	r.GET("/admin", AuthRequired(), AdminRequired(), whoami)

	for email, status := range map[string]int{"admin@example.com": http.StatusOK, "user@example.com": http.StatusForbidden} {
		tok, err := utils.GenerateToken(1, email, time.Hour)
		require.NoError(t, err)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		r.ServeHTTP(w, req)
		assert.Equal(t, status, w.Code, email)
	}
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.GET("/x", RateLimit(4), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := []int{}
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		codes = append(codes, w.Code)
	}
	// burst is half the per-minute limit
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestLimiterStoreExpiresIdleVisitors(t *testing.T) {
	s := newLimiterStore(60)
	now := time.Now()
	s.now = func() time.Time { return now }
	assert.True(t, s.allow("a"))
	now = now.Add(limiterIdleTTL + time.Second)
	assert.True(t, s.allow("b"))
	assert.NotContains(t, s.visitors, "a")
}

func TestPageViewRecorder(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.PageView{}))

	r := gin.New()
	r.Use(PageViewRecorder(db, time.UTC))
	r.GET("/forums/:slug", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/forums", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, p := range []string{"/forums/a", "/forums/a", "/forums/b", "/forums"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	var views []models.PageView
	require.NoError(t, db.Order("path").Find(&views).Error)
	require.Len(t, views, 2)
	assert.Equal(t, "/forums/a", views[0].Path)
	assert.Equal(t, int64(2), views[0].Count)
	assert.Equal(t, int64(1), views[1].Count)
}
