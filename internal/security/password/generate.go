package password

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ErrUnsatisfiable: la política no se puede cumplir con el largo pedido.
var ErrUnsatisfiable = errors.New("password: policy cannot be satisfied")

// Generator produce contraseñas alfanuméricas aleatorias que cumplen Policy.
type Generator struct {
	Length int
	Policy Policy
}

func NewGenerator(length int, policy Policy) *Generator {
	return &Generator{Length: length, Policy: policy}
}

// Generate devuelve una contraseña nueva de g.Length caracteres.
func (g *Generator) Generate() (string, error) {
	return Generate(g.Length, g.Policy)
}

// Generate sortea con crypto/rand hasta cumplir la política (casi siempre
// al primer intento con largos >= 10).
func Generate(length int, p Policy) (string, error) {
	if !p.generatable(length) {
		return "", ErrUnsatisfiable
	}
	max := big.NewInt(int64(len(alphanumeric)))
	buf := make([]byte, length)
	for attempt := 0; attempt < 64; attempt++ {
		for i := range buf {
			n, err := rand.Int(rand.Reader, max)
			if err != nil {
				return "", err
			}
			buf[i] = alphanumeric[n.Int64()]
		}
		if ok, _ := p.Validate(string(buf)); ok {
			return string(buf), nil
		}
	}
	return "", ErrUnsatisfiable
}
