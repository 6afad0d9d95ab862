package application

import (
	"github.com/go-playground/validator/v10"
	"github.com/slapcommerce/core/pkg/domain"
)

// cmdValidator is shared across every command/query's Validate() method.
// validator.Validate is safe for concurrent use once built, so one package
// level instance is enough.
var cmdValidator = validator.New()

// validateStruct runs struct-tag validation and translates the first
// failing field into a domain.ValidationError, matching the taxonomy every
// other layer already reports validation failures through.
func validateStruct(s any) error {
	if err := cmdValidator.Struct(s); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return domain.NewValidationError(fe.Namespace(), "failed on the '"+fe.Tag()+"' tag")
		}
		return domain.NewValidationError("", err.Error())
	}
	return nil
}
