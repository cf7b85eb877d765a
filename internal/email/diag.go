package email

import (
	"errors"
	"net"
	"strings"
)

// Diagnose clasifica una falla de envío SMTP y dice si conviene reintentar
// (el Notifier no reintenta, pero queda en el log y en el TransportError).
func Diagnose(err error) (Code, bool) {
	if err == nil {
		return CodeUnknown, false
	}
	s := strings.ToLower(err.Error())

	var ne net.Error
	isNet := errors.As(err, &ne)

	// timeouts
	if isNet && ne.Timeout() {
		return CodeTimeout, true
	}
	if strings.Contains(s, "timeout") {
		return CodeTimeout, true
	}

	// dial/conn/dns
	if strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connectex:") ||
		strings.Contains(s, "no such host") ||
		strings.Contains(s, "dial tcp") {
		return CodeDial, true
	}

	// tls/handshake/cert
	if strings.Contains(s, "x509:") ||
		strings.Contains(s, "tls") && (strings.Contains(s, "handshake") || strings.Contains(s, "certificate")) {
		return CodeTLS, false
	}

	// auth
	if strings.Contains(s, "5.7.8") || strings.Contains(s, "535") ||
		strings.Contains(s, "username and password not accepted") ||
		strings.Contains(s, "auth") && strings.Contains(s, "failed") {
		return CodeAuth, false
	}

	// throttling 4.x.x
	if strings.Contains(s, "4.7.0") ||
		strings.Contains(s, "rate limit") ||
		strings.Contains(s, "try again later") ||
		strings.Contains(s, "421") || strings.Contains(s, "451") {
		return CodeRateLimited, true
	}

	if strings.Contains(s, "5.1.1") || strings.Contains(s, "user unknown") ||
		strings.Contains(s, "mailbox not found") {
		return CodeInvalidRecipient, false
	}

	// políticas / DMARC / SPF
	if strings.Contains(s, "5.7.1") ||
		strings.Contains(s, "message rejected") ||
		strings.Contains(s, "dmarc") || strings.Contains(s, "spf") {
		return CodeRejected, false
	}

	if isNet {
		return CodeNetwork, true
	}
	return CodeUnknown, false
}

// classify envuelve err en un *TransportError usando Diagnose.
func classify(err error) *TransportError {
	code, temp := Diagnose(err)
	return &TransportError{Code: code, Temporary: temp, Err: err}
}
