package utils

import (
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators adds the domain tags to gin's binding validator:
//
//	urgency  low, medium or high
//	posttype donation or request
//	notblank non-empty after trimming spaces
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("urgency", oneOfFunc("low", "medium", "high"))
		_ = v.RegisterValidation("posttype", oneOfFunc("donation", "request"))
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
	})
}

func oneOfFunc(allowed ...string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		for _, a := range allowed {
			if s == a {
				return true
			}
		}
		return false
	}
}

// ValidationMessage turns binding errors into a short human message.
func ValidationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "invalid request body"
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required", "notblank":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "urgency":
		return field + " must be low, medium or high"
	case "posttype":
		return field + " must be donation or request"
	case "min":
		return field + " is too short"
	case "max":
		return field + " is too long"
	case "eqfield":
		return field + " does not match"
	default:
		return field + " is invalid"
	}
}
