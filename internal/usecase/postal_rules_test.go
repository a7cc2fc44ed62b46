package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geopin-service/internal/domain"
)

func TestParseComplement(t *testing.T) {
	tests := []struct {
		complement string
		ok         bool
		hasRange   bool
		matches    []int
		rejects    []int
	}{
		{complement: "de 1 a 199", ok: true, hasRange: true, matches: []int{1, 100, 199}, rejects: []int{200, 500}},
		{complement: "de 200 ao fim", ok: true, hasRange: true, matches: []int{200, 250, 9999}, rejects: []int{1, 199}},
		{complement: "até 98", ok: true, hasRange: true, matches: []int{1, 98}, rejects: []int{99, 100}},
		{complement: "lado par", ok: true, hasRange: false, matches: []int{2, 44}, rejects: []int{1, 43}},
		{complement: "Lado Ímpar", ok: true, hasRange: false, matches: []int{1, 43}, rejects: []int{2, 44}},
		{complement: "de 1 a 199 - lado ímpar", ok: true, hasRange: true, matches: []int{1, 199}, rejects: []int{2, 201}},
		{complement: "de 200 ao fim - lado par", ok: true, hasRange: true, matches: []int{200, 1000}, rejects: []int{201, 100}},
		{complement: "até 1379/1380", ok: true, hasRange: true, matches: []int{1379, 1380, 2}, rejects: []int{1381, 1382}},
		{complement: "de 1381/1382 ao fim", ok: true, hasRange: true, matches: []int{1381, 1382, 2000}, rejects: []int{1379, 1380}},
		{complement: "de 1/2 a 99/100", ok: true, hasRange: true, matches: []int{1, 2, 99, 100}, rejects: []int{101, 102}},
		{complement: "", ok: false},
		{complement: "Bloco A", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.complement, func(t *testing.T) {
			rule, ok := ParseComplement(tt.complement)
			assert.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.hasRange, rule.HasRange())
			for _, n := range tt.matches {
				assert.True(t, rule.Matches(n), "expected %d to match %q", n, tt.complement)
			}
			for _, n := range tt.rejects {
				assert.False(t, rule.Matches(n), "expected %d not to match %q", n, tt.complement)
			}
		})
	}
}

func TestParseHouseNumber(t *testing.T) {
	tests := []struct {
		input    string
		expected int
		ok       bool
	}{
		{"250", 250, true},
		{" 250A", 250, true},
		{"12-B", 12, true},
		{"s/n", 0, false},
		{"", 0, false},
		{"0", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			n, ok := ParseHouseNumber(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, n)
		})
	}
}

func TestExtractHouseNumber(t *testing.T) {
	tests := []struct {
		query    string
		expected string
	}{
		{"Rua XV de Novembro, 250", "250"},
		{"Rua XV de Novembro, nº 250, Centro", "250"},
		{"Rua XV de Novembro, n. 1200", "1200"},
		{"Avenida Sete de Setembro 1500", "1500"},
		{"Avenida Sete de Setembro 1500, Curitiba", "1500"},
		{"Rua 13 de Maio", ""},
		{"Rodovia BR 116", ""},
		{"Rodovia BR 116, Curitiba", ""},
		{"BR 277 km 12", ""},
		{"Rua 15", ""},
		{"Rodovia BR 116, 3500", "3500"},
		{"Avenida Sete de Setembro 2775", "2775"},
		{"Rua Inexistente 1", "1"},
		{"Rua XV de Novembro, Curitiba", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractHouseNumber(tt.query))
		})
	}
}

func TestResolveByHouseNumber(t *testing.T) {
	ranges := []domain.PostalCandidate{
		{PostalCode: "80000-000", Complement: "de 1 a 199"},
		{PostalCode: "80000-001", Complement: "de 200 ao fim"},
	}
	parity := []domain.PostalCandidate{
		{PostalCode: "80010-000", Complement: "lado par"},
		{PostalCode: "80010-001", Complement: "lado ímpar"},
	}

	t.Run("number after the first range", func(t *testing.T) {
		c, ok := ResolveByHouseNumber(ranges, "250")
		assert.True(t, ok)
		assert.Equal(t, "80000-001", c.PostalCode)
	})

	t.Run("number inside the first range", func(t *testing.T) {
		c, ok := ResolveByHouseNumber(ranges, "15")
		assert.True(t, ok)
		assert.Equal(t, "80000-000", c.PostalCode)
	})

	t.Run("no number", func(t *testing.T) {
		_, ok := ResolveByHouseNumber(ranges, "")
		assert.False(t, ok)
	})

	t.Run("even number picks the even side", func(t *testing.T) {
		c, ok := ResolveByHouseNumber(parity, "44")
		assert.True(t, ok)
		assert.Equal(t, "80010-000", c.PostalCode)
	})

	t.Run("odd number picks the odd side", func(t *testing.T) {
		c, ok := ResolveByHouseNumber(parity, "45")
		assert.True(t, ok)
		assert.Equal(t, "80010-001", c.PostalCode)
	})

	t.Run("range rules win over parity only rules", func(t *testing.T) {
		mixed := []domain.PostalCandidate{
			{PostalCode: "80020-000", Complement: "lado par"},
			{PostalCode: "80020-001", Complement: "de 2 a 98 - lado par"},
		}
		c, ok := ResolveByHouseNumber(mixed, "44")
		assert.True(t, ok)
		assert.Equal(t, "80020-001", c.PostalCode)

		c, ok = ResolveByHouseNumber(mixed, "120")
		assert.True(t, ok)
		assert.Equal(t, "80020-000", c.PostalCode)
	})

	t.Run("unparseable complements never match", func(t *testing.T) {
		_, ok := ResolveByHouseNumber([]domain.PostalCandidate{
			{PostalCode: "80030-000", Complement: "Bloco A"},
			{PostalCode: "80030-001", Complement: ""},
		}, "10")
		assert.False(t, ok)
	})
}

func TestDistinctPostalCodes(t *testing.T) {
	out := DistinctPostalCodes([]domain.PostalCandidate{
		{PostalCode: "80000-000", Complement: "de 1 a 99"},
		{PostalCode: "80000-001"},
		{PostalCode: "80000-000", Complement: "de 100 a 199"},
	})
	assert.Len(t, out, 2)
	assert.Equal(t, "80000-000", out[0].PostalCode)
	assert.Equal(t, "80000-001", out[1].PostalCode)
	assert.Equal(t, "de 1 a 99; de 100 a 199", out[0].Complement)
	assert.Empty(t, out[1].Complement)
}

func TestDistinctPostalCodes_JoinsComplements(t *testing.T) {
	out := DistinctPostalCodes([]domain.PostalCandidate{
		{PostalCode: "80000-000"},
		{PostalCode: "80000-000", Complement: "lado par"},
		{PostalCode: "80000-000", Complement: "lado par"},
		{PostalCode: "80000-000", Complement: " "},
		{PostalCode: "80000-000", Complement: "de 2 a 98"},
	})
	require.Len(t, out, 1)
	assert.Equal(t, "lado par; de 2 a 98", out[0].Complement)
}

func TestResolveByHouseNumber_HighwayQueryDoesNotAutoResolve(t *testing.T) {
	candidates := []domain.PostalCandidate{
		{PostalCode: "81000-000", Complement: "de 1 a 199"},
		{PostalCode: "81000-001", Complement: "de 200 ao fim"},
	}
	_, ok := ResolveByHouseNumber(candidates, ExtractHouseNumber("Rodovia BR 116"))
	assert.False(t, ok)
}
