package email

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/osteele/liquid"
)

//go:embed templates/*
var builtinFS embed.FS

// Body es el resultado de renderizar una vista.
type Body struct {
	Text string
	HTML string
}

// Renderer convierte View + Data en el cuerpo del mail.
type Renderer interface {
	Render(view View, data map[string]any) (Body, error)
}

// ErrViewNotFound: ninguna de las vistas tiene template .txt ni .html.
var ErrViewNotFound = errors.New("email: view not found")

// LiquidRenderer busca cada vista como <name>.html y <name>.txt, primero en
// dir (si se configuró) y después en los templates embebidos.
type LiquidRenderer struct {
	engine *liquid.Engine
	dir    string
	cache  sync.Map // map[string]*liquid.Template
}

// NewLiquidRenderer crea el renderer. dir vacío = sólo templates embebidos.
func NewLiquidRenderer(dir string) *LiquidRenderer {
	return &LiquidRenderer{engine: liquid.NewEngine(), dir: dir}
}

// Render arma el cuerpo. Con varias vistas, la primera que aporte html o txt gana.
func (r *LiquidRenderer) Render(view View, data map[string]any) (Body, error) {
	var out Body
	found := false
	for _, name := range view {
		if out.HTML == "" {
			s, ok, err := r.renderOne(name+".html", data)
			if err != nil {
				return Body{}, err
			}
			if ok {
				out.HTML, found = s, true
			}
		}
		if out.Text == "" {
			s, ok, err := r.renderOne(name+".txt", data)
			if err != nil {
				return Body{}, err
			}
			if ok {
				out.Text, found = s, true
			}
		}
	}
	if !found {
		return Body{}, fmt.Errorf("%w: %v", ErrViewNotFound, []string(view))
	}
	return out, nil
}

func (r *LiquidRenderer) renderOne(file string, data map[string]any) (string, bool, error) {
	tpl, ok, err := r.template(file)
	if err != nil || !ok {
		return "", ok, err
	}
	s, serr := tpl.RenderString(data)
	if serr != nil {
		return "", true, fmt.Errorf("render %s: %w", file, serr)
	}
	return s, true, nil
}

func (r *LiquidRenderer) template(file string) (*liquid.Template, bool, error) {
	if cached, ok := r.cache.Load(file); ok {
		return cached.(*liquid.Template), true, nil
	}

	src, err := r.source(file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	tpl, perr := r.engine.ParseString(src)
	if perr != nil {
		return nil, false, fmt.Errorf("parse %s: %w", file, perr)
	}
	r.cache.Store(file, tpl)
	return tpl, true, nil
}

func (r *LiquidRenderer) source(file string) (string, error) {
	if r.dir != "" {
		b, err := os.ReadFile(filepath.Join(r.dir, file))
		if err == nil {
			return string(b), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	b, err := builtinFS.ReadFile("templates/" + file)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
