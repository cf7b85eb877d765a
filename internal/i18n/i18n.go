// Package i18n traduce los textos que salen en los mails (asuntos).
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Claves conocidas.
const (
	KeyPasswordReset = "Password Reset!"
)

var entries = map[language.Tag]map[string]string{
	language.English: {
		KeyPasswordReset: "Password Reset!",
	},
	language.Spanish: {
		KeyPasswordReset: "¡Restablecimiento de contraseña!",
	},
	language.German: {
		KeyPasswordReset: "Passwort zurückgesetzt!",
	},
}

// Translator resuelve claves contra un catálogo para un locale fijo.
type Translator struct {
	printer *message.Printer
	tag     language.Tag
}

// New arma el translator para locale ("en", "es-AR", ...). Un locale
// desconocido cae en el idioma soportado más cercano (o inglés).
func New(locale string) *Translator {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	supported := []language.Tag{language.English}
	for tag, msgs := range entries {
		if tag != language.English {
			supported = append(supported, tag)
		}
		for k, v := range msgs {
			_ = b.SetString(tag, k, v)
		}
	}

	tag := language.English
	if requested, err := language.Parse(locale); err == nil {
		_, idx, conf := language.NewMatcher(supported).Match(requested)
		if conf != language.No {
			tag = supported[idx]
		}
	}
	return &Translator{
		printer: message.NewPrinter(tag, message.Catalog(b)),
		tag:     tag,
	}
}

// T traduce key; si no hay traducción devuelve la clave.
func (t *Translator) T(key string) string {
	return t.printer.Sprintf(key)
}

// Locale devuelve el idioma efectivo.
func (t *Translator) Locale() string { return t.tag.String() }
