package catalog

import "github.com/shopspring/decimal"

// AuthorUnknown is the display placeholder when no author can be resolved.
const AuthorUnknown = "Autor desconhecido"

// Stop-gap override tables for gaps in the backend contract: a handful of
// stock records ship without a price and a few titles without author rows.
// Keyed by backend ids; remove entries as the catalog is fixed upstream.
var fallbackPriceBySKU = map[int64]decimal.Decimal{
	101: decimal.RequireFromString("29.90"),
	102: decimal.RequireFromString("45.50"),
	107: decimal.RequireFromString("19.90"),
}

var fallbackAuthorByTitle = map[string]string{
	"Dom Casmurro":      "Machado de Assis",
	"Grande Sertão":     "João Guimarães Rosa",
	"Vidas Secas":       "Graciliano Ramos",
	"O Cortiço":         "Aluísio Azevedo",
	"Memórias Póstumas": "Machado de Assis",
	"A Hora da Estrela": "Clarice Lispector",
}

// FallbackPrice returns the override price for a SKU, if one exists.
func FallbackPrice(skuID int64) (decimal.Decimal, bool) {
	price, ok := fallbackPriceBySKU[skuID]
	return price, ok
}

// FallbackAuthor returns the override author for a title, if one exists.
func FallbackAuthor(title string) (string, bool) {
	author, ok := fallbackAuthorByTitle[title]
	return author, ok
}
