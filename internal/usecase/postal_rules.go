package usecase

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/geopin-service/internal/domain"
	"github.com/geopin-service/internal/pkg/utils"
)

// Parity - правило чётности из поля complement
type Parity int

const (
	ParityAny Parity = iota
	ParityEven
	ParityOdd
)

func parityOf(n int) Parity {
	if n%2 == 0 {
		return ParityEven
	}
	return ParityOdd
}

// bound - граница диапазона. Пара "1381/1382" задаёт отдельные границы для нечётной и чётной стороны.
type bound struct {
	set bool
	a   int
	b   int
}

func (bd bound) value(n int) int {
	if bd.b != 0 && parityOf(bd.b) == parityOf(n) && parityOf(bd.a) != parityOf(n) {
		return bd.b
	}
	return bd.a
}

// ComplementRule - разобранное правило диапазона номеров домов для почтового индекса
type ComplementRule struct {
	from   bound
	to     bound
	Parity Parity
}

// HasRange reports whether the rule constrains the numeric range, not only parity.
func (r ComplementRule) HasRange() bool {
	return r.from.set || r.to.set
}

// Matches проверяет, попадает ли номер дома под правило
func (r ComplementRule) Matches(n int) bool {
	if r.Parity != ParityAny && parityOf(n) != r.Parity {
		return false
	}
	if r.from.set && n < r.from.value(n) {
		return false
	}
	if r.to.set && n > r.to.value(n) {
		return false
	}
	return true
}

var (
	rangeRe   = regexp.MustCompile(`de\s+(\d+)(?:/(\d+))?\s+a\s+(\d+)(?:/(\d+))?`)
	toEndRe   = regexp.MustCompile(`de\s+(\d+)(?:/(\d+))?\s+ao\s+fim`)
	upToRe    = regexp.MustCompile(`ate\s+(\d+)(?:/(\d+))?`)
	evenRe    = regexp.MustCompile(`lado\s+par\b`)
	oddRe     = regexp.MustCompile(`lado\s+impar\b`)
	leadingRe = regexp.MustCompile(`^\s*(\d+)`)

	houseAfterCommaRe = regexp.MustCompile(`(?i),\s*(?:n[º°o]?\.?\s*)?(\d+[a-z]?)\b`)
	houseTrailingRe   = regexp.MustCompile(`(?i)\s(\d+[a-z]?)\s*$`)

	// число после кода трассы (BR 116, PR 415, km 12) или одного типа улицы (Rua 15) - часть названия
	roadNumberRe = regexp.MustCompile(`(?i)(?:^|\s)(?:[a-z]{2}|rodovia|rod\.|estrada|rua|r\.|avenida|av\.|alameda|travessa)\s+\d+[a-z]?\s*$`)
)

func parseBound(a, b string) bound {
	bd := bound{set: true}
	bd.a, _ = strconv.Atoi(a)
	if b != "" {
		bd.b, _ = strconv.Atoi(b)
	}
	return bd
}

// ParseComplement разбирает текст вида "de 1 a 199 - lado ímpar", "de 200 ao fim",
// "até 1378/1379", "lado par". ok=false, если правило не распознано.
func ParseComplement(complement string) (ComplementRule, bool) {
	text := utils.FoldText(complement)
	if text == "" {
		return ComplementRule{}, false
	}

	var rule ComplementRule
	switch {
	case evenRe.MatchString(text):
		rule.Parity = ParityEven
	case oddRe.MatchString(text):
		rule.Parity = ParityOdd
	}

	if m := rangeRe.FindStringSubmatch(text); m != nil {
		rule.from = parseBound(m[1], m[2])
		rule.to = parseBound(m[3], m[4])
	} else if m := toEndRe.FindStringSubmatch(text); m != nil {
		rule.from = parseBound(m[1], m[2])
	} else if m := upToRe.FindStringSubmatch(text); m != nil {
		rule.to = parseBound(m[1], m[2])
	}

	return rule, rule.HasRange() || rule.Parity != ParityAny
}

// ParseHouseNumber берёт ведущие цифры: "250A" -> 250, "s/n" -> false
func ParseHouseNumber(s string) (int, bool) {
	m := leadingRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// ExtractHouseNumber ищет номер дома в свободном тексте запроса.
// Сначала номер после запятой ("Rua X, 250", "Rua X, nº 250"), затем номер в конце первого сегмента,
// если это не номер трассы ("Rodovia BR 116").
func ExtractHouseNumber(query string) string {
	if m := houseAfterCommaRe.FindStringSubmatch(query); m != nil {
		return m[1]
	}
	first, _, _ := strings.Cut(query, ",")
	if roadNumberRe.MatchString(first) {
		return ""
	}
	if m := houseTrailingRe.FindStringSubmatch(first); m != nil {
		return m[1]
	}
	return ""
}

// ResolveByHouseNumber выбирает кандидата, чьё правило покрывает номер дома.
// Сначала правила с диапазоном, затем правила только по чётности.
func ResolveByHouseNumber(candidates []domain.PostalCandidate, houseNumber string) (domain.PostalCandidate, bool) {
	n, ok := ParseHouseNumber(houseNumber)
	if !ok {
		return domain.PostalCandidate{}, false
	}

	type parsed struct {
		candidate domain.PostalCandidate
		rule      ComplementRule
	}
	rules := make([]parsed, 0, len(candidates))
	for _, c := range candidates {
		if rule, ok := ParseComplement(c.Complement); ok {
			rules = append(rules, parsed{candidate: c, rule: rule})
		}
	}

	for _, p := range rules {
		if p.rule.HasRange() && p.rule.Matches(n) {
			return p.candidate, true
		}
	}
	for _, p := range rules {
		if !p.rule.HasRange() && p.rule.Matches(n) {
			return p.candidate, true
		}
	}
	return domain.PostalCandidate{}, false
}

// DistinctPostalCodes оставляет по одному кандидату на индекс, сохраняя порядок.
// Разные complement одного индекса склеиваются через "; ", чтобы хост видел все правила.
func DistinctPostalCodes(candidates []domain.PostalCandidate) []domain.PostalCandidate {
	index := make(map[string]int, len(candidates))
	out := make([]domain.PostalCandidate, 0, len(candidates))
	for _, c := range candidates {
		i, ok := index[c.PostalCode]
		if !ok {
			index[c.PostalCode] = len(out)
			out = append(out, c)
			continue
		}
		out[i].Complement = joinComplement(out[i].Complement, c.Complement)
	}
	return out
}

func joinComplement(have, next string) string {
	next = strings.TrimSpace(next)
	if next == "" || slices.Contains(strings.Split(have, "; "), next) {
		return have
	}
	if have == "" {
		return next
	}
	return have + "; " + next
}
