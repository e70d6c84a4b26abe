package handler

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/chuanghiduoc/progress-mailer/pkg/apperror"
	"github.com/chuanghiduoc/progress-mailer/pkg/validator"
)

// paramID extracts and validates a required int64 path parameter.
func paramID(c fiber.Ctx, name string) (int64, error) {
	id := fiber.Params[int64](c, name)
	if id <= 0 {
		return 0, apperror.NewBadRequest("invalid " + name)
	}
	return id, nil
}

// bindAndValidate parses the request body and runs struct validation.
func bindAndValidate(c fiber.Ctx, req any) error {
	if err := c.Bind().Body(req); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			return apperror.NewBadRequest("invalid JSON body")
		}
		return apperror.NewBadRequest("failed to parse request body")
	}
	return validator.ValidateStruct(req)
}

// bindQuery parses query parameters into req and validates them.
func bindQuery(c fiber.Ctx, req any) error {
	if err := c.Bind().Query(req); err != nil {
		return apperror.NewBadRequest("invalid query parameters")
	}
	return validator.ValidateStruct(req)
}
