package viacep

import (
	"strings"

	"github.com/geopin-service/internal/pkg/utils"
)

var stateCodes = map[string]string{
	"acre":                "AC",
	"alagoas":             "AL",
	"amapa":               "AP",
	"amazonas":            "AM",
	"bahia":               "BA",
	"ceara":               "CE",
	"distrito federal":    "DF",
	"espirito santo":      "ES",
	"goias":               "GO",
	"maranhao":            "MA",
	"mato grosso":         "MT",
	"mato grosso do sul":  "MS",
	"minas gerais":        "MG",
	"para":                "PA",
	"paraiba":             "PB",
	"parana":              "PR",
	"pernambuco":          "PE",
	"piaui":               "PI",
	"rio de janeiro":      "RJ",
	"rio grande do norte": "RN",
	"rio grande do sul":   "RS",
	"rondonia":            "RO",
	"roraima":             "RR",
	"santa catarina":      "SC",
	"sao paulo":           "SP",
	"sergipe":             "SE",
	"tocantins":           "TO",
}

// StateCode нормализует название штата ("Paraná", "pr", "PR") в двухбуквенный код
func StateCode(state string) string {
	folded := utils.FoldText(state)
	if len(folded) == 2 {
		return strings.ToUpper(folded)
	}
	if code, ok := stateCodes[folded]; ok {
		return code
	}
	return ""
}
