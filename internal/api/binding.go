package api

import (
	"errors"
	"sync"

	"github.com/bosunhq/bosun/internal/models"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	validatorsOnce sync.Once
	validatorsErr  error
)

// registerValidators adds the domain enums to gin's validator so request
// structs can use `binding:"cadence"` and `binding:"condition"`.
func registerValidators() error {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			validatorsErr = errors.New("api: unexpected validator engine")
			return
		}
		rules := map[string]validator.Func{
			"cadence": func(fl validator.FieldLevel) bool {
				return models.CadenceType(fl.Field().String()).Valid()
			},
			"condition": func(fl validator.FieldLevel) bool {
				return models.LineCondition(fl.Field().String()).Valid()
			},
		}
		for tag, fn := range rules {
			if err := v.RegisterValidation(tag, fn); err != nil {
				validatorsErr = err
				return
			}
		}
	})
	return validatorsErr
}
