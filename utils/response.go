package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSONResponse is the envelope every API response uses.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON envelope with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{Code: code, Message: message, Data: data})
}

// Success returns a 200 envelope.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, 0, "success", data)
}

// Created returns a 201 envelope.
func Created(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusCreated, 0, "created", data)
}

// Error returns an error envelope.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// Abort writes an error envelope and stops the handler chain.
func Abort(ctx *gin.Context, status int, code int, message string) {
	Error(ctx, status, code, message)
	ctx.Abort()
}
