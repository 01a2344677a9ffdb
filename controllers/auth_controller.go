package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/pedulirasa/backend/config"
	"github.com/pedulirasa/backend/middleware"
	"github.com/pedulirasa/backend/models"
	"github.com/pedulirasa/backend/utils"
)

const (
	emailCodeTTL      = 10 * time.Minute
	emailCodeCooldown = 60 * time.Second
)

// AuthController handles authentication related endpoints including local and third-party providers.
type AuthController struct {
	db     *gorm.DB
	mailer utils.Mailer
}

// NewAuthController creates an AuthController. mailer delivers verification codes.
func NewAuthController(db *gorm.DB, mailer utils.Mailer) *AuthController {
	return &AuthController{db: db, mailer: mailer}
}

type userResponse struct {
	models.User
	IsAdmin bool `json:"is_admin"`
}

func sanitizeUserResponse(u models.User) userResponse {
	return userResponse{User: u, IsAdmin: config.Get().IsAdminEmail(u.Email)}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (a *AuthController) issue(ctx *gin.Context, status int, user models.User) {
	token, err := utils.GenerateToken(user.ID, user.Email, utils.TokenTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	utils.Respond(ctx, status, 0, "success", gin.H{"token": token, "user": sanitizeUserResponse(user)})
}

// Register handles local account registration with bcrypt hashing.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Name          string `json:"name" binding:"required,notblank,max=100"`
		Email         string `json:"email" binding:"required,email,max=255"`
		Password      string `json:"password" binding:"required"`
		Confirm       string `json:"confirm" binding:"required"`
		CaptchaID     string `json:"captcha_id"`
		CaptchaAnswer string `json:"captcha_answer"`
	}
	if !bindJSON(ctx, &req, 40001) {
		return
	}
	if req.Password != req.Confirm {
		utils.Error(ctx, http.StatusBadRequest, 40002, "passwords do not match")
		return
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, err.Error())
		return
	}
	if config.Get().RegisterCaptchaEnabled {
		if !utils.VerifyCaptcha(strings.TrimSpace(req.CaptchaID), strings.TrimSpace(req.CaptchaAnswer)) {
			utils.Error(ctx, http.StatusBadRequest, 40003, "captcha is wrong or expired")
			return
		}
	}

	email := normalizeEmail(req.Email)
	var n int64
	if err := a.db.WithContext(ctx.Request.Context()).Unscoped().Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to check email")
		return
	}
	if n > 0 {
		utils.Error(ctx, http.StatusConflict, 40901, "email already registered")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to hash password")
		return
	}
	user := models.User{Name: utils.SanitizePlain(req.Name), Email: email, PasswordHash: hash}
	if err := a.db.WithContext(ctx.Request.Context()).Create(&user).Error; err != nil {
		utils.Sugar.Errorw("create user failed", "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to create user")
		return
	}
	a.issue(ctx, http.StatusCreated, user)
}

// Captcha returns a fresh captcha id and base64 image (data URI)
func (a *AuthController) Captcha(ctx *gin.Context) {
	id, b64, err := utils.GenerateCaptcha()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to generate captcha")
		return
	}
	utils.Success(ctx, gin.H{"id": id, "image": b64})
}

// SendEmailCode mails a verification code to the current user's address.
func (a *AuthController) SendEmailCode(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	var user models.User
	if err := a.db.WithContext(ctx.Request.Context()).First(&user, uid).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}
	if user.EmailVerifiedAt != nil {
		utils.Error(ctx, http.StatusBadRequest, 40041, "email already verified")
		return
	}
	if !utils.CooldownTry("email", user.Email, emailCodeCooldown) {
		utils.Error(ctx, http.StatusTooManyRequests, 42910, "too many requests, try again later")
		return
	}
	code := utils.GenerateVerificationCode(6)
	body := fmt.Sprintf("Your PeduliRasa verification code is %s.\nIt expires in 10 minutes.", code)
	if err := a.mailer.Send(user.Email, "PeduliRasa email verification", body); err != nil {
		utils.Sugar.Warnw("send verification mail failed", "user_id", user.ID, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to send verification code")
		return
	}
	// saved only after a successful send
	utils.SaveCode(user.Email, code, emailCodeTTL)
	utils.Success(ctx, gin.H{"message": "verification code sent"})
}

// VerifyEmail consumes a code and marks the address verified.
func (a *AuthController) VerifyEmail(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req struct {
		Code string `json:"code" binding:"required,notblank"`
	}
	if !bindJSON(ctx, &req, 40042) {
		return
	}
	db := a.db.WithContext(ctx.Request.Context())
	var user models.User
	if err := db.First(&user, uid).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}
	if !utils.VerifyAndConsumeCode(user.Email, strings.TrimSpace(req.Code)) {
		utils.Error(ctx, http.StatusBadRequest, 40043, "code is invalid or expired")
		return
	}
	now := time.Now()
	if err := db.Model(&user).Update("email_verified_at", now).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to verify email")
		return
	}
	user.EmailVerifiedAt = &now
	utils.Success(ctx, sanitizeUserResponse(user))
}

// Login verifies user credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(ctx, &req, 40004) {
		return
	}
	var user models.User
	if err := a.db.WithContext(ctx.Request.Context()).Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid email or password")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid email or password")
		return
	}
	a.issue(ctx, http.StatusOK, user)
}

// Logout invalidates the token by blacklisting it until expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	if token == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "missing token")
		return
	}
	claims, err := utils.ParseToken(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}
	expiresAt := time.Now().Add(utils.TokenTTL)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	utils.BlacklistToken(token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// OAuthRedirect generates a provider-specific authorization URL.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	cfg, err := a.oauthConfig(ctx.Param("provider"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40005, err.Error())
		return
	}
	state := uuid.NewString()
	utils.SaveState(state, 10*time.Minute)
	utils.Success(ctx, gin.H{"authorization_url": cfg.AuthCodeURL(state, oauth2.AccessTypeOffline), "state": state})
}

// OAuthCallback exchanges the authorization code for a user identity and issues a JWT.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	code := ctx.Query("code")
	state := ctx.Query("state")
	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, 40006, "missing code or state")
		return
	}
	if !utils.ConsumeState(state) {
		utils.Error(ctx, http.StatusBadRequest, 40007, "invalid or expired state")
		return
	}
	cfg, err := a.oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40005, err.Error())
		return
	}
	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 15*time.Second)
	defer cancel()
	token, err := cfg.Exchange(reqCtx, code)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40008, "failed to exchange code")
		return
	}
	info, err := fetchOAuthUser(reqCtx, provider, cfg.Client(reqCtx, token))
	if err != nil {
		utils.Sugar.Warnw("oauth user info failed", "provider", provider, "error", err)
		utils.Error(ctx, http.StatusBadGateway, 50205, "failed to load provider profile")
		return
	}
	user, err := a.findOrCreateOAuthUser(ctx.Request.Context(), provider, info)
	if err != nil {
		utils.Sugar.Errorw("persist oauth user failed", "provider", provider, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50006, "failed to persist user")
		return
	}
	a.issue(ctx, http.StatusOK, *user)
}

// Me returns the current authenticated user's information.
func (a *AuthController) Me(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	var user models.User
	if err := a.db.WithContext(ctx.Request.Context()).First(&user, uid).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}
	utils.Success(ctx, sanitizeUserResponse(user))
}

// UpdateProfile allows the authenticated user to update basic profile fields.
// Absent fields are left alone; an empty string clears an optional field.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	uid, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req struct {
		Name        *string `json:"name" binding:"omitempty,notblank,max=100"`
		PhoneNumber *string `json:"phone_number" binding:"omitempty,max=32"`
		Address     *string `json:"address" binding:"omitempty,max=255"`
		Image       *string `json:"image" binding:"omitempty,max=512"`
	}
	if !bindJSON(ctx, &req, 40030) {
		return
	}
	db := a.db.WithContext(ctx.Request.Context())
	var user models.User
	if err := db.First(&user, uid).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = utils.SanitizePlain(*req.Name)
	}
	optional := func(column string, v *string) {
		if v == nil {
			return
		}
		if s := utils.SanitizePlain(*v); s != "" {
			updates[column] = s
		} else {
			updates[column] = nil
		}
	}
	optional("phone_number", req.PhoneNumber)
	optional("address", req.Address)
	optional("image", req.Image)
	if len(updates) > 0 {
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&user).Updates(updates).Error; err != nil {
				return err
			}
			if req.Image != nil {
				var current []string
				if user.Image != nil {
					current = append(current, *user.Image)
				}
				return claimUploads(tx, uid, current, *req.Image)
			}
			return nil
		})
		if err != nil {
			respondError(ctx, err, 31, "failed to update profile")
			return
		}
		// author blocks are embedded in cached feed pages
		afterPostWrite()
	}
	if err := db.First(&user, uid).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}
	utils.Success(ctx, sanitizeUserResponse(user))
}

func (a *AuthController) oauthConfig(provider string) (*oauth2.Config, error) {
	cfg := config.Get()
	switch strings.ToLower(provider) {
	case "github":
		if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
			return nil, fmt.Errorf("github oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  fmt.Sprintf("%s/api/v1/auth/oauth/github/callback", cfg.OAuthRedirectBase),
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}, nil
	case "google":
		if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
			return nil, fmt.Errorf("google oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  fmt.Sprintf("%s/api/v1/auth/oauth/google/callback", cfg.OAuthRedirectBase),
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

type oauthUser struct {
	ID        string
	Name      string
	Email     string
	AvatarURL string
}

func fetchOAuthUser(ctx context.Context, provider string, client *http.Client) (*oauthUser, error) {
	switch provider {
	case "github":
		return fetchGitHubUser(ctx, client)
	case "google":
		return fetchGoogleUser(ctx, client)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// findOrCreateOAuthUser matches on (provider, provider_id), then links an existing
// account with the same email, and otherwise creates a new user.
func (a *AuthController) findOrCreateOAuthUser(ctx context.Context, provider string, data *oauthUser) (*models.User, error) {
	db := a.db.WithContext(ctx)
	var user models.User
	err := db.Where("provider = ? AND provider_id = ?", provider, data.ID).First(&user).Error
	if err == nil {
		if data.AvatarURL != "" && user.Image == nil {
			avatar := data.AvatarURL
			_ = db.Model(&user).Update("image", avatar).Error
			user.Image = &avatar
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	email := normalizeEmail(data.Email)
	if email == "" {
		email = fmt.Sprintf("%s-%s@users.noreply.pedulirasa", provider, data.ID)
	}
	err = db.Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		if err := db.Model(&user).Updates(map[string]interface{}{"provider": provider, "provider_id": data.ID}).Error; err != nil {
			return nil, err
		}
		return &user, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	now := time.Now()
	user = models.User{
		Name:       fallback(data.Name, strings.Split(email, "@")[0]),
		Email:      email,
		Provider:   provider,
		ProviderID: data.ID,
	}
	if data.Email != "" {
		user.EmailVerifiedAt = &now
	}
	if data.AvatarURL != "" {
		avatar := data.AvatarURL
		user.Image = &avatar
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func fetchGitHubUser(ctx context.Context, client *http.Client) (*oauthUser, error) {
	var payload struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := getJSON(ctx, client, "https://api.github.com/user", &payload); err != nil {
		return nil, err
	}
	email := payload.Email
	if email == "" {
		email, _ = fetchGitHubEmail(ctx, client)
	}
	return &oauthUser{
		ID:        fmt.Sprintf("%d", payload.ID),
		Name:      fallback(payload.Name, payload.Login),
		Email:     email,
		AvatarURL: payload.AvatarURL,
	}, nil
}

func fetchGitHubEmail(ctx context.Context, client *http.Client) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(ctx, client, "https://api.github.com/user/emails", &emails); err != nil {
		return "", err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", nil
}

func fetchGoogleUser(ctx context.Context, client *http.Client) (*oauthUser, error) {
	var payload struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := getJSON(ctx, client, "https://www.googleapis.com/oauth2/v2/userinfo", &payload); err != nil {
		return nil, err
	}
	return &oauthUser{ID: payload.ID, Name: payload.Name, Email: payload.Email, AvatarURL: payload.Picture}, nil
}

func fallback(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
