package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pedulirasa/backend/config"
	"github.com/pedulirasa/backend/services"
	"github.com/pedulirasa/backend/utils"
)

// ContactController forwards contact messages and abuse reports by mail.
type ContactController struct {
	mailer utils.Mailer
}

// NewContactController creates a ContactController.
func NewContactController(mailer utils.Mailer) *ContactController {
	return &ContactController{mailer: mailer}
}

type contactRequest struct {
	Name    string `json:"name" binding:"required,notblank,max=100"`
	Email   string `json:"email" binding:"required,email"`
	Subject string `json:"subject" binding:"omitempty,max=200"`
	Message string `json:"message" binding:"required,notblank,max=5000"`
}

type reportRequest struct {
	Type   string `json:"type" binding:"required"`
	Slug   string `json:"slug" binding:"required,notblank"`
	Reason string `json:"reason" binding:"required,notblank,max=2000"`
}

func (c *ContactController) cooldown(ctx *gin.Context, scope string) bool {
	secs := config.Get().ContactCooldown
	if utils.CooldownTry(scope, ctx.ClientIP(), time.Duration(secs)*time.Second) {
		return true
	}
	utils.Error(ctx, http.StatusTooManyRequests, 42911, "please wait before sending again")
	return false
}

func (c *ContactController) deliver(ctx *gin.Context, subject, body string) bool {
	to := config.Get().ContactRecipient
	if to == "" {
		utils.Error(ctx, http.StatusServiceUnavailable, 50311, "contact is not configured")
		return false
	}
	if err := c.mailer.Send(to, subject, body); err != nil {
		utils.Sugar.Errorw("contact mail failed", "subject", subject, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to send message")
		return false
	}
	return true
}

// Contact handles POST /contact.
func (c *ContactController) Contact(ctx *gin.Context) {
	var req contactRequest
	if !bindJSON(ctx, &req, 40011) {
		return
	}
	if !c.cooldown(ctx, "contact") {
		return
	}
	subject := utils.SanitizePlain(req.Subject)
	if subject == "" {
		subject = "Contact form"
	}
	body := fmt.Sprintf("From: %s <%s>\n\n%s\n", utils.SanitizePlain(req.Name), strings.TrimSpace(req.Email), utils.SanitizePlain(req.Message))
	if !c.deliver(ctx, "[PeduliRasa] "+subject, body) {
		return
	}
	utils.Success(ctx, gin.H{"sent": true})
}

// Report handles POST /reports about a post.
func (c *ContactController) Report(ctx *gin.Context) {
	var req reportRequest
	if !bindJSON(ctx, &req, 40012) {
		return
	}
	kind, ok := services.ParseKind(req.Type)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40013, "unknown post type")
		return
	}
	if !c.cooldown(ctx, "report") {
		return
	}
	reporter := "anonymous"
	if uid, ok := getUserID(ctx); ok {
		reporter = fmt.Sprintf("user #%d", uid)
	}
	body := fmt.Sprintf("Reported %s: %s\nBy: %s (%s)\n\n%s\n", kind, strings.TrimSpace(req.Slug), reporter, ctx.ClientIP(), utils.SanitizePlain(req.Reason))
	if !c.deliver(ctx, fmt.Sprintf("[PeduliRasa] Report on %s %s", kind, strings.TrimSpace(req.Slug)), body) {
		return
	}
	utils.Success(ctx, gin.H{"sent": true})
}
