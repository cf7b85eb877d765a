// Package dto contiene los cuerpos JSON de la API de recuperación. Los usa
// tanto el server como recoveryctl.
package dto

// CaptchaVerifyRequest es el body de POST /captcha/verify.
type CaptchaVerifyRequest struct {
	Token string `json:"token"`
}

// CaptchaVerifyResponse: result es "success" o "failed".
type CaptchaVerifyResponse struct {
	Result string `json:"result"`
}

// ResetRequest es el body de POST /password/reset.
type ResetRequest struct {
	Email string `json:"email"`
}

// ResetResponse es la respuesta de los dos pasos del reset.
type ResetResponse struct {
	Status string `json:"status"`
	Flow   string `json:"flow"`
}

// ErrorResponse refleja el JSON de error de la API.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// HealthResponse es la respuesta de GET /healthz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
