package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// RecaptchaProvider habla con el endpoint siteverify de reCAPTCHA (v2 o v3).
type RecaptchaProvider struct {
	secret    string
	verifyURL string
	client    *http.Client
}

func NewRecaptchaProvider(secret, verifyURL string, timeout time.Duration) *RecaptchaProvider {
	if verifyURL == "" {
		verifyURL = DefaultVerifyURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RecaptchaProvider{
		secret:    secret,
		verifyURL: verifyURL,
		client:    &http.Client{Timeout: timeout},
	}
}

func (p *RecaptchaProvider) Check(ctx context.Context, token, remoteIP string) (Response, error) {
	data := url.Values{}
	data.Set("secret", p.secret)
	data.Set("response", token)
	if remoteIP != "" {
		data.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.verifyURL, strings.NewReader(data.Encode()))
	if err != nil {
		return Response{}, fmt.Errorf("recaptcha: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("recaptcha: verify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("recaptcha: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return Response{}, fmt.Errorf("recaptcha: read response: %w", err)
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return Response{}, fmt.Errorf("recaptcha: parse response: %w", err)
	}
	return out, nil
}
