package email

import (
	"fmt"
	netmail "net/mail"
	"reflect"
	"strings"
)

// Recipient es un par dirección + nombre visible. Ambos son obligatorios.
type Recipient struct {
	Address string
	Name    string
}

func (r Recipient) validate() error {
	if strings.TrimSpace(r.Address) == "" {
		return fmt.Errorf("%w: recipient address is required", ErrInvalidArgument)
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: recipient name is required", ErrInvalidArgument)
	}
	return nil
}

// String devuelve el header RFC 5322 "Name <address>". El nombre sale entre
// comillas o codificado RFC 2047 cuando hace falta ("Doe, John", acentos).
func (r Recipient) String() string {
	return (&netmail.Address{Name: r.Name, Address: r.Address}).String()
}

// View es la lista ordenada de templates de la notificación.
// Una vista simple es una lista de un elemento.
type View []string

// Message es una notificación lista para enviar. Se obtiene solo via Builder.Build
// y no se puede modificar: los getters devuelven copias.
type Message struct {
	from    Recipient
	to      Recipient
	subject string
	view    View
	data    map[string]any
}

func (m Message) From() Recipient { return m.from }
func (m Message) To() Recipient   { return m.to }
func (m Message) Subject() string { return m.subject }
func (m Message) View() View      { return append(View(nil), m.view...) }
func (m Message) Data() map[string]any {
	out := make(map[string]any, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out
}

// Builder acumula y valida los campos de un Message. Es request-scoped:
// se crea uno por flujo y no se comparte entre requests.
type Builder struct {
	from    *Recipient
	to      *Recipient
	subject string
	view    View
	data    map[string]any
}

// NewBuilder crea un Builder vacío.
func NewBuilder() *Builder {
	return &Builder{}
}

// SetFrom define el remitente.
func (b *Builder) SetFrom(r Recipient) error {
	if err := r.validate(); err != nil {
		return fmt.Errorf("from: %w", err)
	}
	b.from = &r
	return nil
}

// SetTo define el destinatario.
func (b *Builder) SetTo(r Recipient) error {
	if err := r.validate(); err != nil {
		return fmt.Errorf("to: %w", err)
	}
	b.to = &r
	return nil
}

// SetSubject define el asunto (ya traducido).
func (b *Builder) SetSubject(subject string) error {
	if strings.TrimSpace(subject) == "" {
		return fmt.Errorf("subject: %w: empty subject", ErrInvalidArgument)
	}
	b.subject = subject
	return nil
}

// SetData define las variables de la vista. Acepta un map con claves string,
// un struct o un puntero a struct; los structs se aplanan usando el tag `mail`.
func (b *Builder) SetData(data any) error {
	m, err := toDataMap(data)
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	b.data = m
	return nil
}

// SetView define la vista (o vistas, en orden) de la notificación.
func (b *Builder) SetView(names ...string) error {
	if len(names) == 0 {
		return fmt.Errorf("view: %w: no view given", ErrInvalidArgument)
	}
	v := make(View, 0, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			return fmt.Errorf("view: %w: empty view name", ErrInvalidArgument)
		}
		v = append(v, n)
	}
	b.view = v
	return nil
}

// From devuelve el remitente y si fue definido.
func (b *Builder) From() (Recipient, bool) {
	if b.from == nil {
		return Recipient{}, false
	}
	return *b.from, true
}

// To devuelve el destinatario y si fue definido.
func (b *Builder) To() (Recipient, bool) {
	if b.to == nil {
		return Recipient{}, false
	}
	return *b.to, true
}

func (b *Builder) Subject() string      { return b.subject }
func (b *Builder) View() View           { return append(View(nil), b.view...) }
func (b *Builder) Data() map[string]any { return b.data }

// Build valida que estén todos los campos requeridos y devuelve un Message inmutable.
func (b *Builder) Build() (Message, error) {
	var missing []string
	if b.from == nil {
		missing = append(missing, "from")
	}
	if b.to == nil {
		missing = append(missing, "to")
	}
	if b.subject == "" {
		missing = append(missing, "subject")
	}
	if len(b.view) == 0 {
		missing = append(missing, "view")
	}
	if len(missing) > 0 {
		return Message{}, fmt.Errorf("%w: missing %s", ErrIncompleteMessage, strings.Join(missing, ", "))
	}

	data := make(map[string]any, len(b.data))
	for k, v := range b.data {
		data[k] = v
	}
	return Message{
		from:    *b.from,
		to:      *b.to,
		subject: b.subject,
		view:    append(View(nil), b.view...),
		data:    data,
	}, nil
}

// toDataMap normaliza map/struct a map[string]any.
func toDataMap(data any) (map[string]any, error) {
	if m, ok := data.(map[string]any); ok {
		if m == nil {
			return map[string]any{}, nil
		}
		return m, nil
	}

	rv := reflect.ValueOf(data)
	if !rv.IsValid() {
		return nil, fmt.Errorf("%w: nil data", ErrInvalidArgument)
	}
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: nil data", ErrInvalidArgument)
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: data map keys must be strings", ErrInvalidArgument)
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out, nil
	case reflect.Struct:
		rt := rv.Type()
		out := make(map[string]any, rt.NumField())
		for i := 0; i < rt.NumField(); i++ {
			f := rt.Field(i)
			if !f.IsExported() {
				continue
			}
			name := f.Name
			if tag, ok := f.Tag.Lookup("mail"); ok {
				if tag == "-" {
					continue
				}
				if tag != "" {
					name = tag
				}
			}
			out[name] = rv.Field(i).Interface()
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: data must be a map or a struct, got %s", ErrInvalidArgument, rv.Kind())
	}
}
