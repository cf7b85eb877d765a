package helpers

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	httperrors "github.com/dropDatabas3/recovery/internal/http/errors"
)

// MaxBodyBytes es el tope de body para los endpoints JSON.
const MaxBodyBytes int64 = 64 << 10

// ClientIP devuelve la IP del cliente considerando X-Forwarded-For.
func ClientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		parts := strings.Split(xf, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// ReadJSON decodifica el body en dst con tope de tamaño. Devuelve un
// *AppError listo para WriteError.
func ReadJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		switch {
		case errors.As(err, &mbe):
			return httperrors.ErrBodyTooLarge.WithCause(err)
		case errors.Is(err, io.EOF):
			return httperrors.ErrMissingFields.WithDetail("empty body")
		default:
			return httperrors.ErrInvalidJSON.WithCause(err)
		}
	}
	return nil
}

// WriteJSON responde v como JSON con status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
