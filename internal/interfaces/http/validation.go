package http

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/taller-compras/internal/application/dto"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Nombres de campo = tag json, para que los errores coincidan con el body.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// parseBody decodifica el JSON y lo valida. Retorna la respuesta 400 ya escrita en caso de error
// (handled=true); el handler solo debe retornar err.
func parseBody(c *fiber.Ctx, out interface{}) (handled bool, err error) {
	if err := c.BodyParser(out); err != nil {
		return true, c.Status(fiber.StatusBadRequest).JSON(dto.Fail("INVALID_BODY", "cuerpo inválido"))
	}
	if err := validate.Struct(out); err != nil {
		resp := dto.Fail("VALIDATION", "la solicitud no es válida")
		resp.Fields = validationFields(err)
		return true, c.Status(fiber.StatusBadRequest).JSON(resp)
	}
	return false, nil
}

// validationFields mapa ruta JSON del campo -> mensaje (p. ej. "lines[0].product_id").
func validationFields(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, e := range verrs {
		field := e.Field()
		if ns := e.Namespace(); strings.Contains(ns, ".") {
			field = ns[strings.Index(ns, ".")+1:]
		}
		out[field] = validationMessage(e)
	}
	return out
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "campo requerido"
	case "min":
		if e.Kind() == reflect.Slice {
			return "debe tener al menos " + e.Param() + " elemento(s)"
		}
		return "debe tener al menos " + e.Param() + " caracteres"
	case "max":
		return "debe tener como máximo " + e.Param() + " caracteres"
	case "len":
		return "debe tener exactamente " + e.Param() + " caracteres"
	case "oneof":
		return "debe ser uno de: " + e.Param()
	default:
		return "valor inválido"
	}
}
