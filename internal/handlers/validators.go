package handlers

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/SscSPs/txn_categorizer/internal/core/domain"
)

// registerValidators adds the custom binding tags used by the request DTOs.
func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("mapping_status", validMappingStatus)
	}
}

var validMappingStatus validator.Func = func(fl validator.FieldLevel) bool {
	status, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return domain.MappingStatus(status).Valid()
}
