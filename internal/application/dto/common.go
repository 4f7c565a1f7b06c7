package dto

// DataResponse envoltura de éxito: {"ok":true,"data":...}.
type DataResponse struct {
	OK   bool        `json:"ok"`
	Data interface{} `json:"data"`
}

// ErrorResponse cuerpo de error HTTP: {"ok":false,"code":"...","message":"..."}.
// Fields lleva los mensajes de validación por campo (nombre JSON) cuando aplica.
type ErrorResponse struct {
	OK      bool              `json:"ok"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Data construye la envoltura de éxito.
func Data(v interface{}) DataResponse {
	return DataResponse{OK: true, Data: v}
}

// Fail construye la envoltura de error.
func Fail(code, message string) ErrorResponse {
	return ErrorResponse{OK: false, Code: code, Message: message}
}
