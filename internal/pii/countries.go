package pii

// countryAliases keys are upper-case with spaces and hyphens folded to "_".
var countryAliases = map[string]string{
	"BRASIL": "BR",
	"BRAZIL": "BR",
	"BRA":    "BR",

	"UNITED_STATES":            "US",
	"UNITED_STATES_OF_AMERICA": "US",
	"ESTADOS_UNIDOS":           "US",
	"USA":                      "US",

	"UNITED_KINGDOM": "GB",
	"REINO_UNIDO":    "GB",
	"GREAT_BRITAIN":  "GB",
	"GBR":            "GB",

	"PORTUGAL": "PT",
	"PRT":      "PT",

	"ARGENTINA": "AR",
	"ARG":       "AR",

	"MEXICO": "MX",
	"MÉXICO": "MX",
	"MEX":    "MX",

	"CHILE": "CL",
	"CHL":   "CL",

	"COLOMBIA": "CO",
	"COLÔMBIA": "CO",
	"COL":      "CO",

	"URUGUAY": "UY",
	"URUGUAI": "UY",
	"URY":     "UY",

	"PARAGUAY": "PY",
	"PARAGUAI": "PY",
	"PRY":      "PY",

	"PERU": "PE",
	"PER":  "PE",

	"SPAIN":   "ES",
	"ESPANHA": "ES",
	"ESPAÑA":  "ES",
	"ESP":     "ES",

	"CANADA": "CA",
	"CANADÁ": "CA",
	"CAN":    "CA",

	"GERMANY":  "DE",
	"ALEMANHA": "DE",
	"DEU":      "DE",

	"FRANCE": "FR",
	"FRANÇA": "FR",
	"FRA":    "FR",

	"ITALY":  "IT",
	"ITÁLIA": "IT",
	"ITALIA": "IT",
	"ITA":    "IT",
}

var currencyAliases = map[string]string{
	"R$":    "BRL",
	"REAL":  "BRL",
	"REAIS": "BRL",
	"US$":   "USD",
	"€":     "EUR",
	"EURO":  "EUR",
	"EUROS": "EUR",
	"£":     "GBP",
}
