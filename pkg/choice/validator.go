package choice

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// A single cached validator instance, configured to report JSON field names
// so validation errors match the decoded document.
var (
	validatorInstance *validator.Validate
	validatorOnce     sync.Once
)

func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		validatorInstance = validator.New()
		validatorInstance.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validatorInstance
}
