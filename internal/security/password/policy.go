package password

import "unicode"

// Policy son las reglas que debe cumplir una contraseña generada.
type Policy struct {
	MinLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
}

// Reason es una regla incumplida.
type Reason string

const (
	ReasonTooShort      Reason = "too_short"
	ReasonMissingUpper  Reason = "missing_upper"
	ReasonMissingLower  Reason = "missing_lower"
	ReasonMissingDigit  Reason = "missing_digit"
	ReasonMissingSymbol Reason = "missing_symbol"
)

// Validate devuelve las reglas que s no cumple.
func (p Policy) Validate(s string) (ok bool, reasons []Reason) {
	if len([]rune(s)) < p.MinLength {
		reasons = append(reasons, ReasonTooShort)
	}
	var hasU, hasL, hasD, hasS bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			hasU = true
		case unicode.IsLower(r):
			hasL = true
		case unicode.IsDigit(r):
			hasD = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasS = true
		}
	}
	for _, rule := range []struct {
		want, has bool
		reason    Reason
	}{
		{p.RequireUpper, hasU, ReasonMissingUpper},
		{p.RequireLower, hasL, ReasonMissingLower},
		{p.RequireDigit, hasD, ReasonMissingDigit},
		{p.RequireSymbol, hasS, ReasonMissingSymbol},
	} {
		if rule.want && !rule.has {
			reasons = append(reasons, rule.reason)
		}
	}
	return len(reasons) == 0, reasons
}

// generatable dice si una contraseña alfanumérica de length caracteres puede
// cumplir p. Los símbolos no están en el alfabeto del generador.
func (p Policy) generatable(length int) bool {
	if length <= 0 || length < p.MinLength || p.RequireSymbol {
		return false
	}
	required := 0
	for _, b := range []bool{p.RequireUpper, p.RequireLower, p.RequireDigit} {
		if b {
			required++
		}
	}
	return length >= required
}
