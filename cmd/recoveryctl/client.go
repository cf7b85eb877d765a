package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/recovery/internal/http/dto"
)

type client struct {
	BaseURL    string
	CookieName string
	OutFormat  string // "json" | "text"
	HTTP       *http.Client
}

func newClient(baseURL, cookieName string, timeout time.Duration) (*client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		CookieName: cookieName,
		HTTP:       &http.Client{Timeout: timeout, Jar: jar},
	}, nil
}

// useSession fija el id de sesión de una ejecución anterior.
func (c *client) useSession(sid string) error {
	if sid == "" {
		return nil
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return err
	}
	c.HTTP.Jar.SetCookies(u, []*http.Cookie{{Name: c.CookieName, Value: sid, Path: "/"}})
	return nil
}

// session devuelve el id de sesión que tiene el jar, si hay.
func (c *client) session() string {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return ""
	}
	for _, ck := range c.HTTP.Jar.Cookies(u) {
		if ck.Name == c.CookieName {
			return ck.Value
		}
	}
	return ""
}

func (c *client) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

// check convierte una respuesta de error de la API en error de Go.
func check(status int, body []byte) error {
	if status < 400 {
		return nil
	}
	var e dto.ErrorResponse
	if json.Unmarshal(body, &e) == nil && e.Code != "" {
		if e.Detail != "" {
			return fmt.Errorf("%s (%d): %s: %s", e.Code, status, e.Message, e.Detail)
		}
		return fmt.Errorf("%s (%d): %s", e.Code, status, e.Message)
	}
	return fmt.Errorf("unexpected status %d: %s", status, strings.TrimSpace(string(body)))
}

func (c *client) print(w io.Writer, status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Fprintln(w, string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Fprintln(w, strings.TrimSpace(string(body)))
	} else {
		fmt.Fprintf(w, "status=%d\n", status)
	}
}
