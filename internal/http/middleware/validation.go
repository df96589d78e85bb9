package middleware

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators installs the custom binding rules on gin's validator
// and reports field names by their json tag.
//
//   - notundefined: rejects the literal "undefined" some clients send for
//     missing ids, in strings and string slices.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("notundefined", notUndefined)
	})
}

func notUndefined(fl validator.FieldLevel) bool {
	field := fl.Field()
	switch field.Kind() {
	case reflect.String:
		return strings.TrimSpace(field.String()) != "undefined"
	case reflect.Slice:
		for i := 0; i < field.Len(); i++ {
			el := field.Index(i)
			if el.Kind() == reflect.String && strings.TrimSpace(el.String()) == "undefined" {
				return false
			}
		}
	}
	return true
}
