package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pedulirasa/backend/config"
	"github.com/pedulirasa/backend/controllers"
	"github.com/pedulirasa/backend/models"
	"github.com/pedulirasa/backend/services"
	"github.com/pedulirasa/backend/utils"
)

// fixedNow is the service clock; affairs before it are in the past.
var fixedNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memStore) URL(key string) string { return "https://cdn.example.com/" + key }

type sentMail struct{ to, subject, body string }

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeMailer) Send(to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{to, subject, body})
	return nil
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type env struct {
	db     *gorm.DB
	r      *gin.Engine
	store  *memStore
	mailer *fakeMailer
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newEnv(t *testing.T) *env {
	t.Helper()
	config.Override(config.AppConfig{
		JWTSecret:          "router-secret",
		AppURL:             "http://api.test",
		GinMode:            "test",
		GinPath:            filepath.Join(t.TempDir(), "gin.log"),
		RateLimitPerMinute: 100000,
		AllowedOrigins:     []string{"*"},
		Timezone:           "UTC",
		AdminEmails:        []string{"admin@example.com"},
		UploadTTLMinutes:   60,
		ContactRecipient:   "team@pedulirasa.test",
		ContactCooldown:    60,
	})
	utils.SetRedis(nil)
	utils.RegisterValidators()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() { _ = sqlDB.Close() })

	store := &memStore{objects: map[string][]byte{}}
	svc := services.New(db,
		services.WithClock(func() time.Time { return fixedNow }),
		services.WithLocation(time.UTC),
		services.WithResolver(func(k string) string { return "https://cdn.example.com/" + k }),
	)
	mailer := &fakeMailer{}
	r := SetupRouter(Deps{DB: db, Service: svc, Storage: store, Hub: controllers.NewChatHub(), Mailer: mailer})
	return &env{db: db, r: r, store: store, mailer: mailer}
}

func (e *env) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func decode(t *testing.T, raw json.RawMessage, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, out), string(raw))
}

// register creates an account through the API and returns its token and id.
func (e *env) register(t *testing.T, name string) (string, uint) {
	t.Helper()
	code, res := e.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": name, "email": name + "@example.com", "password": "secret123", "confirm": "secret123",
	})
	require.Equal(t, http.StatusCreated, code, res.Message)
	var out struct {
		Token string `json:"token"`
		User  struct {
			ID uint `json:"id"`
		} `json:"user"`
	}
	decode(t, res.Data, &out)
	return out.Token, out.User.ID
}

func (e *env) createDonation(t *testing.T, token string, body gin.H) models.Donation {
	t.Helper()
	code, res := e.do(t, http.MethodPost, "/api/v1/donations", token, body)
	require.Equal(t, http.StatusCreated, code, res.Message)
	var d models.Donation
	decode(t, res.Data, &d)
	return d
}

// pending records uploads of userID that have not been attached to a post yet.
func (e *env) pending(t *testing.T, userID uint, paths ...string) {
	t.Helper()
	for _, p := range paths {
		require.NoError(t, e.db.Create(&models.UploadedFile{
			UserID: userID, Path: p, URL: "https://cdn.example.com/" + p, ExpireAt: fixedNow.Add(time.Hour),
		}).Error)
	}
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	e := newEnv(t)

	code, res := e.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	var health map[string]interface{}
	decode(t, res.Data, &health)
	assert.Equal(t, "disabled", health["redis"])

	code, res = e.do(t, http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, 40400, res.Code)
}

func TestPublicConfig(t *testing.T) {
	e := newEnv(t)

	code, res := e.do(t, http.MethodGet, "/api/v1/config", "", nil)
	require.Equal(t, http.StatusOK, code)
	var got struct {
		RegisterCaptcha bool     `json:"register_captcha"`
		OAuthProviders  []string `json:"oauth_providers"`
		Timezone        string   `json:"timezone"`
		FeedPerPage     int      `json:"feed_per_page"`
		UrgencyLevels   []string `json:"urgency_levels"`
		DateRanges      []string `json:"date_ranges"`
	}
	decode(t, res.Data, &got)
	assert.False(t, got.RegisterCaptcha)
	assert.Empty(t, got.OAuthProviders)
	assert.Equal(t, "UTC", got.Timezone)
	assert.Equal(t, services.FeedPerPage, got.FeedPerPage)
	assert.Equal(t, []string{"low", "medium", "high"}, got.UrgencyLevels)
	assert.Equal(t, []string{"all", "today", "week", "month", "year"}, got.DateRanges)
}

func TestAccountFlow(t *testing.T) {
	e := newEnv(t)
	token, id := e.register(t, "sari")
	assert.NotZero(t, id)

	code, _ := e.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": "Sari", "email": "SARI@example.com", "password": "secret123", "confirm": "secret123",
	})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = e.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": "Weak", "email": "weak@example.com", "password": "short", "confirm": "short",
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = e.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "sari@example.com", "password": "wrong-pass1"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, res := e.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "Sari@Example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, code)
	var login struct {
		Token string `json:"token"`
	}
	decode(t, res.Data, &login)
	assert.NotEmpty(t, login.Token)

	code, res = e.do(t, http.MethodPatch, "/api/v1/auth/profile", token, gin.H{"name": "Sari W", "address": "Jl. Melati 3"})
	require.Equal(t, http.StatusOK, code, res.Message)
	var me struct {
		Name    string  `json:"name"`
		Address *string `json:"address"`
		IsAdmin bool    `json:"is_admin"`
	}
	decode(t, res.Data, &me)
	assert.Equal(t, "Sari W", me.Name)
	require.NotNil(t, me.Address)
	assert.Equal(t, "Jl. Melati 3", *me.Address)
	assert.False(t, me.IsAdmin)

	code, _ = e.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, code)
	code, res = e.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, 40104, res.Code)

	code, _ = e.do(t, http.MethodGet, "/api/v1/auth/me", login.Token, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestEmailVerification(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register(t, "budi")

	code, _ := e.do(t, http.MethodPost, "/api/v1/auth/email/send-code", token, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 1, e.mailer.count())

	code, _ = e.do(t, http.MethodPost, "/api/v1/auth/email/send-code", token, nil)
	assert.Equal(t, http.StatusTooManyRequests, code)

	// a wrong guess keeps the code for the real attempt below
	code, _ = e.do(t, http.MethodPost, "/api/v1/auth/email/verify", token, gin.H{"code": "000000x"})
	assert.Equal(t, http.StatusBadRequest, code)

	body := e.mailer.sent[0].body
	var sent string
	_, err := fmt.Sscanf(body, "Your PeduliRasa verification code is %6s", &sent)
	require.NoError(t, err)

	code, res := e.do(t, http.MethodPost, "/api/v1/auth/email/verify", token, gin.H{"code": sent})
	require.Equal(t, http.StatusOK, code, res.Message)
	var u struct {
		EmailVerifiedAt *time.Time `json:"email_verified_at"`
	}
	decode(t, res.Data, &u)
	assert.NotNil(t, u.EmailVerifiedAt)

	code, _ = e.do(t, http.MethodPost, "/api/v1/auth/email/verify", token, gin.H{"code": sent})
	assert.Equal(t, http.StatusBadRequest, code, "a code is used once")
}

func TestDonationLifecycle(t *testing.T) {
	e := newEnv(t)
	owner, ownerID := e.register(t, "owner")
	other, _ := e.register(t, "other")
	admin, _ := e.register(t, "admin")
	e.pending(t, ownerID, "donations/a.jpg", "donations/b.jpg")

	code, res := e.do(t, http.MethodPost, "/api/v1/donations", owner, gin.H{
		"type": "request", "title": "Need rice", "description": "for the shelter",
	})
	assert.Equal(t, http.StatusBadRequest, code, res.Message)

	code, _ = e.do(t, http.MethodPost, "/api/v1/donations", owner, gin.H{
		"type": "request", "title": "Need rice", "description": "for the shelter", "urgency": "extreme",
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = e.do(t, http.MethodPost, "/api/v1/donations", "", gin.H{"type": "donation", "title": "x", "description": "y"})
	assert.Equal(t, http.StatusUnauthorized, code)

	d := e.createDonation(t, owner, gin.H{
		"type": "donation", "title": "Free Books", "description": "<b>ten</b> novels",
		"address": "Bandung", "images": []string{"donations/a.jpg", "donations/b.jpg"},
	})
	assert.Equal(t, "free-books", d.Slug)
	assert.Equal(t, "ten novels", d.Description)
	require.Len(t, d.Images, 2)
	assert.Equal(t, "donations/a.jpg", d.Images[0].Image)
	assert.Equal(t, "https://cdn.example.com/donations/a.jpg", d.Images[0].URL)

	again := e.createDonation(t, owner, gin.H{"type": "donation", "title": "Free Books", "description": "more"})
	assert.Equal(t, "free-books-2", again.Slug)

	code, res = e.do(t, http.MethodGet, "/api/v1/donations/free-books", "", nil)
	require.Equal(t, http.StatusOK, code)
	var shown struct {
		Donation models.Donation `json:"donation"`
		Liked    bool            `json:"liked"`
	}
	decode(t, res.Data, &shown)
	assert.Equal(t, "Free Books", shown.Donation.Title)
	assert.False(t, shown.Liked)

	code, _ = e.do(t, http.MethodPut, "/api/v1/donations/free-books", other, gin.H{"type": "donation", "title": "Mine", "description": "z"})
	assert.Equal(t, http.StatusForbidden, code)

	code, res = e.do(t, http.MethodPut, "/api/v1/donations/free-books", owner, gin.H{
		"type": "request", "title": "Need Books", "description": "school", "urgency": "high",
	})
	require.Equal(t, http.StatusOK, code, res.Message)
	var updated models.Donation
	decode(t, res.Data, &updated)
	assert.Equal(t, "need-books", updated.Slug)
	require.NotNil(t, updated.Urgency)
	assert.Equal(t, "high", *updated.Urgency)
	assert.Len(t, updated.Images, 2, "images are kept when not sent")

	code, _ = e.do(t, http.MethodDelete, "/api/v1/donations/need-books", other, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = e.do(t, http.MethodDelete, "/api/v1/donations/need-books", owner, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = e.do(t, http.MethodGet, "/api/v1/donations/need-books", "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = e.do(t, http.MethodGet, "/api/v1/admin/donations?trashed=only", other, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, res = e.do(t, http.MethodGet, "/api/v1/admin/donations?trashed=only", admin, nil)
	require.Equal(t, http.StatusOK, code)
	var trashed struct {
		Items []models.Donation `json:"items"`
		Total int64             `json:"total"`
	}
	decode(t, res.Data, &trashed)
	require.Equal(t, int64(1), trashed.Total)
	assert.Equal(t, "need-books", trashed.Items[0].Slug)

	code, _ = e.do(t, http.MethodPost, "/api/v1/admin/donations/need-books/restore", admin, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = e.do(t, http.MethodGet, "/api/v1/donations/need-books", "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = e.do(t, http.MethodDelete, "/api/v1/admin/donations/need-books", admin, nil)
	require.Equal(t, http.StatusOK, code)
	var n int64
	require.NoError(t, e.db.Unscoped().Model(&models.Donation{}).Where("slug = ?", "need-books").Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, e.db.Model(&models.DonationImage{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestFeedsThroughHTTP(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register(t, "feeder")
	for i := 0; i < 3; i++ {
		e.createDonation(t, token, gin.H{"type": "donation", "title": fmt.Sprintf("Gift %d", i), "description": "d"})
	}
	e.createDonation(t, token, gin.H{"type": "request", "title": "Help", "description": "d", "urgency": "low"})

	code, res := e.do(t, http.MethodGet, "/api/v1/donations", "", nil)
	require.Equal(t, http.StatusOK, code)
	var page services.Page[models.Donation]
	decode(t, res.Data, &page)
	assert.Len(t, page.Data, 4)
	assert.Equal(t, "http://api.test/api/v1/donations", page.Path)
	assert.Equal(t, services.FeedPerPage, page.PerPage)
	assert.Nil(t, page.NextCursor)
	assert.Nil(t, page.PrevCursor)

	code, res = e.do(t, http.MethodGet, "/api/v1/requests", "", nil)
	require.Equal(t, http.StatusOK, code)
	decode(t, res.Data, &page)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Help", page.Data[0].Title)

	code, res = e.do(t, http.MethodGet, "/api/v1/donations?cursor=%25%25bad", "", nil)
	require.Equal(t, http.StatusOK, code)
	decode(t, res.Data, &page)
	assert.Empty(t, page.Data)
	assert.Nil(t, page.NextPageURL)
}

func TestAffairsFeedShowsUpcomingOnly(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register(t, "organizer")

	for _, a := range []gin.H{
		{"title": "Past Cleanup", "description": "d", "date": "2026-10-01", "time": "08:00", "location": "Park"},
		{"title": "Today Bazaar", "description": "d", "date": "2026-10-14", "time": "09:30", "location": "Hall"},
		{"title": "Future Drive", "description": "d", "date": "2030-01-01", "time": "10:00", "location": "Field"},
	} {
		code, res := e.do(t, http.MethodPost, "/api/v1/affairs", token, a)
		require.Equal(t, http.StatusCreated, code, res.Message)
	}
	code, _ := e.do(t, http.MethodPost, "/api/v1/affairs", token, gin.H{
		"title": "Bad", "description": "d", "date": "14/10/2026", "time": "10:00", "location": "X",
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, res := e.do(t, http.MethodGet, "/api/v1/affairs", "", nil)
	require.Equal(t, http.StatusOK, code)
	var page struct {
		Data []struct {
			Title string `json:"title"`
			Time  string `json:"time"`
		} `json:"data"`
	}
	decode(t, res.Data, &page)
	titles := []string{}
	for _, a := range page.Data {
		titles = append(titles, a.Title)
	}
	assert.ElementsMatch(t, []string{"Today Bazaar", "Future Drive"}, titles)
}

func TestForumLikesAndComments(t *testing.T) {
	e := newEnv(t)
	author, authorID := e.register(t, "author")
	reader, _ := e.register(t, "reader")
	e.pending(t, authorID, "forums/t.jpg")

	code, res := e.do(t, http.MethodPost, "/api/v1/forums", author, gin.H{
		"title": "Sharing tips", "description": "<p>hello<script>x</script></p>", "thumbnail": "forums/t.jpg",
	})
	require.Equal(t, http.StatusCreated, code, res.Message)
	var forum models.Forum
	decode(t, res.Data, &forum)
	assert.Equal(t, "<p>hello</p>", forum.Description)
	assert.Equal(t, "https://cdn.example.com/forums/t.jpg", forum.ThumbnailURL)

	var like struct {
		Liked bool  `json:"liked"`
		Count int64 `json:"liked_by_users_count"`
	}
	code, res = e.do(t, http.MethodPost, "/api/v1/forums/sharing-tips/like", reader, nil)
	require.Equal(t, http.StatusOK, code)
	decode(t, res.Data, &like)
	assert.True(t, like.Liked)
	assert.Equal(t, int64(1), like.Count)

	code, res = e.do(t, http.MethodPost, "/api/v1/forums/sharing-tips/like", reader, nil)
	require.Equal(t, http.StatusOK, code)
	decode(t, res.Data, &like)
	assert.False(t, like.Liked)
	assert.Zero(t, like.Count)

	code, res = e.do(t, http.MethodPost, "/api/v1/comments/forum/sharing-tips", reader, gin.H{"body": "nice <i>post</i>"})
	require.Equal(t, http.StatusCreated, code, res.Message)
	var comment models.Comment
	decode(t, res.Data, &comment)
	assert.Equal(t, models.CommentableForum, comment.CommentableType)

	code, _ = e.do(t, http.MethodPost, "/api/v1/comments/forum/missing", reader, gin.H{"body": "hi"})
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = e.do(t, http.MethodPost, "/api/v1/comments/poll/sharing-tips", reader, gin.H{"body": "hi"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, res = e.do(t, http.MethodGet, "/api/v1/forums/sharing-tips", "", nil)
	require.Equal(t, http.StatusOK, code)
	var shown struct {
		Forum    models.Forum     `json:"forum"`
		Comments []models.Comment `json:"comments"`
	}
	decode(t, res.Data, &shown)
	assert.Equal(t, int64(1), shown.Forum.CommentsCount)
	require.Len(t, shown.Comments, 1)

	path := fmt.Sprintf("/api/v1/comments/%d", comment.ID)
	code, _ = e.do(t, http.MethodDelete, path, author, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = e.do(t, http.MethodDelete, path, reader, nil)
	assert.Equal(t, http.StatusOK, code)

	code, res = e.do(t, http.MethodGet, "/api/v1/comments/forum/sharing-tips", "", nil)
	require.Equal(t, http.StatusOK, code)
	var left []models.Comment
	decode(t, res.Data, &left)
	assert.Empty(t, left)
}

func TestGenericLikesAndProfiles(t *testing.T) {
	e := newEnv(t)
	owner, ownerID := e.register(t, "giver")
	fan, fanID := e.register(t, "fan")
	e.createDonation(t, owner, gin.H{"type": "donation", "title": "Blanket", "description": "warm"})
	e.createDonation(t, owner, gin.H{"type": "request", "title": "Need Milk", "description": "baby", "urgency": "medium"})

	code, _ := e.do(t, http.MethodPost, "/api/v1/likes/request/need-milk", fan, nil)
	require.Equal(t, http.StatusOK, code)

	code, res := e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/users/%d/liked", fanID), "", nil)
	require.Equal(t, http.StatusOK, code)
	var liked []services.Post
	decode(t, res.Data, &liked)
	require.Len(t, liked, 1)
	assert.Equal(t, services.KindRequest, liked[0].Type)

	code, res = e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", ownerID), "", nil)
	require.Equal(t, http.StatusOK, code)
	var profile struct {
		Name       string              `json:"name"`
		PostCounts services.PostCounts `json:"post_counts"`
	}
	decode(t, res.Data, &profile)
	assert.Equal(t, "giver", profile.Name)
	assert.Equal(t, services.PostCounts{Donations: 1, Requests: 1}, profile.PostCounts)

	code, res = e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/users/%d/posts?type=request", ownerID), "", nil)
	require.Equal(t, http.StatusOK, code)
	var posts []services.Post
	decode(t, res.Data, &posts)
	require.Len(t, posts, 1)
	assert.Equal(t, "Need Milk", posts[0].Title)

	code, _ = e.do(t, http.MethodGet, "/api/v1/users/999", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSearchEndpoint(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register(t, "searcher")
	e.createDonation(t, token, gin.H{"type": "donation", "title": "Rice sack", "description": "5kg", "address": "Depok"})
	e.createDonation(t, token, gin.H{"type": "request", "title": "Rice for flood", "description": "urgent", "urgency": "high"})

	code, res := e.do(t, http.MethodGet, "/api/v1/search?q=rice&type=bogus&date=decade", "", nil)
	require.Equal(t, http.StatusOK, code)
	var out services.SearchResult
	decode(t, res.Data, &out)
	assert.Len(t, out.Posts, 2)
	assert.Equal(t, services.KindAll, out.Filters.Type)
	assert.Equal(t, "all", out.Filters.Date)

	code, res = e.do(t, http.MethodGet, "/api/v1/search?q=rice&location=depok", "", nil)
	require.Equal(t, http.StatusOK, code)
	decode(t, res.Data, &out)
	require.Len(t, out.Posts, 1)
	assert.Equal(t, "Rice sack", out.Posts[0].Title)
}

func TestCategories(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register(t, "curator")

	code, res := e.do(t, http.MethodPost, "/api/v1/categories/request", token, gin.H{"name": "Food"})
	require.Equal(t, http.StatusCreated, code, res.Message)
	code, _ = e.do(t, http.MethodPost, "/api/v1/categories/donation", token, gin.H{"name": "food"})
	assert.Equal(t, http.StatusOK, code, "existing name is returned")
	code, _ = e.do(t, http.MethodPost, "/api/v1/categories/gadget", token, gin.H{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, res = e.do(t, http.MethodGet, "/api/v1/categories/donation", "", nil)
	require.Equal(t, http.StatusOK, code)
	var rows []struct {
		ID   uint   `json:"id"`
		Name string `json:"name"`
		Slug string `json:"slug"`
	}
	decode(t, res.Data, &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, "food", rows[0].Slug)

	code, _ = e.do(t, http.MethodPost, "/api/v1/donations", token, gin.H{
		"type": "donation", "title": "Cake", "description": "d", "category_id": 999,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	d := e.createDonation(t, token, gin.H{"type": "donation", "title": "Cake", "description": "d", "category_id": rows[0].ID})
	require.NotNil(t, d.Category)
	assert.Equal(t, "Food", d.Category.Name)
}

func TestChat(t *testing.T) {
	e := newEnv(t)
	alice, aliceID := e.register(t, "alice")
	bob, bobID := e.register(t, "bob")

	code, _ := e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/chats/%d", aliceID), alice, gin.H{"message": "me"})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = e.do(t, http.MethodPost, "/api/v1/chats/999", alice, gin.H{"message": "hi"})
	assert.Equal(t, http.StatusNotFound, code)

	code, res := e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/chats/%d", bobID), alice, gin.H{"message": "hello bob"})
	require.Equal(t, http.StatusCreated, code, res.Message)

	var unread struct {
		Unread int64 `json:"unread"`
	}
	code, res = e.do(t, http.MethodGet, "/api/v1/chats/unread", bob, nil)
	require.Equal(t, http.StatusOK, code)
	decode(t, res.Data, &unread)
	assert.Equal(t, int64(1), unread.Unread)

	code, res = e.do(t, http.MethodGet, "/api/v1/chats", bob, nil)
	require.Equal(t, http.StatusOK, code)
	var convs []services.Conversation
	decode(t, res.Data, &convs)
	require.Len(t, convs, 1)
	require.NotNil(t, convs[0].User.ID)
	assert.Equal(t, aliceID, *convs[0].User.ID)

	code, res = e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/chats/%d", aliceID), bob, nil)
	require.Equal(t, http.StatusOK, code)
	var msgs []models.ChatMessage
	decode(t, res.Data, &msgs)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello bob", msgs[0].Message)

	code, res = e.do(t, http.MethodGet, "/api/v1/chats/unread", bob, nil)
	require.Equal(t, http.StatusOK, code)
	decode(t, res.Data, &unread)
	assert.Zero(t, unread.Unread)

	code, _ = e.do(t, http.MethodGet, "/api/v1/chats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

// tinyPNG is a valid PNG header, enough for content sniffing.
var tinyPNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

func (e *env) upload(t *testing.T, token, name string, data []byte) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("folder", "donations"))
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	var out envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return w.Code, out
}

func TestUploadIsClaimedByPost(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register(t, "uploader")

	code, _ := e.upload(t, token, "notes.txt", []byte("plain text, not an image"))
	assert.Equal(t, http.StatusBadRequest, code)

	code, res := e.upload(t, token, "photo.png", tinyPNG)
	require.Equal(t, http.StatusCreated, code, res.Message)
	var up struct {
		Path string `json:"path"`
		URL  string `json:"url"`
	}
	decode(t, res.Data, &up)
	assert.Regexp(t, `^donations/\d{4}/\d{2}/.+\.png$`, up.Path)
	assert.Equal(t, "https://cdn.example.com/"+up.Path, up.URL)
	assert.Contains(t, e.store.objects, up.Path)

	var pending int64
	require.NoError(t, e.db.Model(&models.UploadedFile{}).Count(&pending).Error)
	assert.Equal(t, int64(1), pending)

	e.createDonation(t, token, gin.H{"type": "donation", "title": "Chair", "description": "d", "images": []string{up.Path}})
	require.NoError(t, e.db.Model(&models.UploadedFile{}).Count(&pending).Error)
	assert.Zero(t, pending, "attached uploads are no longer pending")
}

func TestForeignUploadsCannotBeAttached(t *testing.T) {
	e := newEnv(t)
	_, ownerID := e.register(t, "uploadowner")
	thief, thiefID := e.register(t, "borrower")
	e.pending(t, ownerID, "donations/owner.jpg", "forums/owner.jpg")
	e.pending(t, thiefID, "donations/mine.jpg")

	code, res := e.do(t, http.MethodPost, "/api/v1/donations", thief, gin.H{
		"type": "donation", "title": "Borrowed", "description": "d", "images": []string{"donations/owner.jpg"},
	})
	assert.Equal(t, http.StatusBadRequest, code, res.Message)
	code, _ = e.do(t, http.MethodPost, "/api/v1/donations", thief, gin.H{
		"type": "donation", "title": "Made up", "description": "d", "images": []string{"donations/nowhere.jpg"},
	})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = e.do(t, http.MethodPost, "/api/v1/forums", thief, gin.H{
		"title": "Borrowed", "description": "d", "thumbnail": "forums/owner.jpg",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = e.do(t, http.MethodPatch, "/api/v1/auth/profile", thief, gin.H{"image": "forums/owner.jpg"})
	assert.Equal(t, http.StatusBadRequest, code)

	var stillPending int64
	require.NoError(t, e.db.Model(&models.UploadedFile{}).Where("user_id = ?", ownerID).Count(&stillPending).Error)
	assert.Equal(t, int64(2), stillPending, "rejected attempts leave the owner's uploads pending")
	var donations int64
	require.NoError(t, e.db.Model(&models.Donation{}).Count(&donations).Error)
	assert.Zero(t, donations)

	d := e.createDonation(t, thief, gin.H{
		"type": "donation", "title": "Own photo", "description": "d", "images": []string{"donations/mine.jpg"},
	})
	// images already on the post may be sent again on update
	code, res = e.do(t, http.MethodPut, "/api/v1/donations/"+d.Slug, thief, gin.H{
		"type": "donation", "title": "Own photo", "description": "d2", "images": []string{"donations/mine.jpg"},
	})
	require.Equal(t, http.StatusOK, code, res.Message)
	var updated models.Donation
	decode(t, res.Data, &updated)
	require.Len(t, updated.Images, 1)
	assert.Equal(t, "donations/mine.jpg", updated.Images[0].Image)

	code, _ = e.do(t, http.MethodPut, "/api/v1/donations/"+d.Slug, thief, gin.H{
		"type": "donation", "title": "Own photo", "description": "d3", "images": []string{"donations/owner.jpg"},
	})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestContactCooldown(t *testing.T) {
	e := newEnv(t)
	body := gin.H{"name": "Rina", "email": "rina@example.com", "message": "Great work!"}

	code, _ := e.do(t, http.MethodPost, "/api/v1/contact", "", body)
	require.Equal(t, http.StatusOK, code)
	code, res := e.do(t, http.MethodPost, "/api/v1/contact", "", body)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, 42911, res.Code)

	code, _ = e.do(t, http.MethodPost, "/api/v1/reports", "", gin.H{"type": "forum", "slug": "spam-post", "reason": "spam"})
	require.Equal(t, http.StatusOK, code)

	require.Equal(t, 2, e.mailer.count())
	assert.Equal(t, "team@pedulirasa.test", e.mailer.sent[0].to)
	assert.Contains(t, e.mailer.sent[1].subject, "forum spam-post")
}

func TestStatsAndPageViews(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register(t, "counter")
	e.createDonation(t, token, gin.H{"type": "donation", "title": "Shoes", "description": "d"})

	for i := 0; i < 3; i++ {
		code, _ := e.do(t, http.MethodGet, "/api/v1/donations/shoes", "", nil)
		require.Equal(t, http.StatusOK, code)
	}

	code, res := e.do(t, http.MethodGet, "/api/v1/stats/donation/shoes", "", nil)
	require.Equal(t, http.StatusOK, code)
	var ps struct {
		PV int64 `json:"pv"`
	}
	decode(t, res.Data, &ps)
	assert.Equal(t, int64(3), ps.PV)

	code, res = e.do(t, http.MethodGet, "/api/v1/stats", "", nil)
	require.Equal(t, http.StatusOK, code)
	var stats map[string]int64
	decode(t, res.Data, &stats)
	assert.Equal(t, int64(1), stats["user_count"])
	assert.Equal(t, int64(1), stats["donation_count"])
	assert.Zero(t, stats["request_count"])
}
