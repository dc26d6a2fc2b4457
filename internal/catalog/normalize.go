package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	pkgerrors "github.com/liabooks/cartsync/pkg/errors"
	"github.com/liabooks/cartsync/pkg/types"
	"github.com/shopspring/decimal"
)

// The backend returns cart lines in several shapes: flat book records,
// lines wrapping an estoque record, estoque records wrapping a livro. This
// package is the only place allowed to know about that variance; every
// logical field is resolved through an ordered list of candidate paths.
var (
	itemIDPaths = [][]string{
		{"id_livro"},
		{"livroId"},
		{"livro", "id_livro"},
		{"estoque", "id_livro"},
		{"estoque", "livro", "id_livro"},
	}
	remoteLineIDPaths = [][]string{
		{"id_item_carrinho"},
		{"id_item"},
	}
	titlePaths = [][]string{
		{"titulo"},
		{"livro", "titulo"},
		{"estoque", "livro", "titulo"},
	}
	pricePaths = [][]string{
		{"preco_unitario"},
		{"preco"},
		{"estoque", "preco"},
		{"estoque", "livro", "preco"},
	}
	imagePaths = [][]string{
		{"imagem_url"},
		{"imagemUrl"},
		{"capa_url"},
		{"livro", "capa_url"},
		{"estoque", "livro", "capa_url"},
	}
	skuPaths = [][]string{
		{"id_estoque"},
		{"estoque", "id_estoque"},
	}
	availablePaths = [][]string{
		{"quantidade_disponivel"},
		{"estoque", "quantidade_disponivel"},
		{"estoque", "quantidade"},
	}
	quantityPaths = [][]string{
		{"quantidade"},
		{"quantity"},
	}
	authorPaths = [][]string{
		{"autor"},
		{"autores"},
		{"livro", "autor"},
		{"livro", "autores"},
		{"estoque", "livro", "autor"},
		{"estoque", "livro", "autores"},
	}
	availabilityFields = []string{
		"quantidade_disponivel",
		"quantidade",
		"stock",
		"available",
		"disponivel",
	}
)

// DecodeCartPayload accepts the cart response body in any of the tolerated
// envelopes: a bare array, {items: [...]}, {itens: [...]} or {data: [...]}.
func DecodeCartPayload(body []byte) ([]map[string]any, error) {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, err, "undecodable cart payload")
	}

	switch value := decoded.(type) {
	case []any:
		return toLineMaps(value), nil
	case map[string]any:
		for _, key := range []string{"items", "itens", "data"} {
			if list, ok := value[key].([]any); ok {
				return toLineMaps(list), nil
			}
		}
		return nil, nil
	default:
		return nil, nil
	}
}

func toLineMaps(list []any) []map[string]any {
	lines := make([]map[string]any, 0, len(list))
	for _, entry := range list {
		if m, ok := entry.(map[string]any); ok {
			lines = append(lines, m)
		}
	}
	return lines
}

// NormalizeLines maps each raw line to a CartLine, dropping only entries
// that resolve to no identity at all. A malformed line degrades to
// best-effort defaults rather than failing the list.
func NormalizeLines(raw []map[string]any) []types.CartLine {
	lines := make([]types.CartLine, 0, len(raw))
	for _, entry := range raw {
		line := NormalizeLine(entry)
		if line.ItemID == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// NormalizeLine resolves one raw payload into a canonical CartLine. It is
// pure, never mutates its input, and never panics on partial data.
func NormalizeLine(raw map[string]any) types.CartLine {
	var line types.CartLine

	line.SKUID = lookupInt64Ptr(raw, skuPaths)
	line.RemoteLineID = lookupInt64Ptr(raw, remoteLineIDPaths)
	line.Title = lookupString(raw, titlePaths)
	line.AuthorDisplay = resolveAuthor(raw, line.Title)
	line.UnitPrice = resolvePrice(raw, line.SKUID)
	line.ImageURL = normalizeImageURL(lookupString(raw, imagePaths))
	line.AvailableStock = lookupIntPtr(raw, availablePaths)

	quantity := 1
	if qty, ok := lookupInt(raw, quantityPaths); ok && qty >= 1 {
		quantity = qty
	}
	line.Quantity = quantity

	itemID := lookupString(raw, itemIDPaths)
	if itemID == "" && line.SKUID != nil {
		itemID = strconv.FormatInt(*line.SKUID, 10)
	}
	if itemID == "" && line.Title != "" {
		itemID = line.Title
	}
	line.ItemID = itemID

	return line
}

// resolvePrice walks the price candidates and takes the first that parses
// to a positive value. A price of zero is treated like an absent field so
// that a zeroed top-level preco does not shadow the real nested one.
func resolvePrice(raw map[string]any, skuID *int64) decimal.Decimal {
	for _, path := range pricePaths {
		value, ok := lookup(raw, path)
		if !ok {
			continue
		}
		price, ok := ParsePrice(value)
		if ok && price.IsPositive() {
			return price
		}
	}
	if skuID != nil {
		if price, ok := FallbackPrice(*skuID); ok {
			return price
		}
	}
	return decimal.Zero
}

// ParsePrice converts a raw price value to a non-negative two-digit
// decimal. String prices are sanitized (everything but digits, separators
// and sign stripped; locale comma mapped to a dot) before parsing. An
// unparsable value reports !ok and resolves to zero, never an error.
func ParsePrice(value any) (decimal.Decimal, bool) {
	switch typed := value.(type) {
	case nil:
		return decimal.Zero, false
	case float64:
		if math.IsNaN(typed) || math.IsInf(typed, 0) {
			return decimal.Zero, false
		}
		return clampPrice(decimal.NewFromFloat(typed)), true
	case json.Number:
		parsed, err := decimal.NewFromString(typed.String())
		if err != nil {
			return decimal.Zero, false
		}
		return clampPrice(parsed), true
	case string:
		sanitized := sanitizePriceString(typed)
		if sanitized == "" {
			return decimal.Zero, false
		}
		parsed, err := decimal.NewFromString(sanitized)
		if err != nil {
			return decimal.Zero, false
		}
		return clampPrice(parsed), true
	default:
		return decimal.Zero, false
	}
}

func sanitizePriceString(value string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(value) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ',':
			b.WriteRune('.')
		case r == '.' || r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}

func clampPrice(price decimal.Decimal) decimal.Decimal {
	if price.IsNegative() {
		return decimal.Zero
	}
	return price.Round(2)
}

// resolveAuthor walks the author candidates: an object or string on the
// line, the first element of an authors array, the embedded book's author,
// then the title override table, then the unknown-author placeholder.
func resolveAuthor(raw map[string]any, title string) string {
	for _, path := range authorPaths {
		value, ok := lookup(raw, path)
		if !ok {
			continue
		}
		if name := authorName(value); name != "" {
			return name
		}
	}
	if author, ok := FallbackAuthor(title); ok {
		return author
	}
	return AuthorUnknown
}

func authorName(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case map[string]any:
		for _, key := range []string{"nome_completo", "nome", "name"} {
			if name, ok := typed[key].(string); ok && strings.TrimSpace(name) != "" {
				return strings.TrimSpace(name)
			}
		}
		// some payloads wrap the author row one level deeper
		if inner, ok := typed["autor"]; ok {
			return authorName(inner)
		}
		return ""
	case []any:
		if len(typed) == 0 {
			return ""
		}
		return authorName(typed[0])
	default:
		return ""
	}
}

// normalizeImageURL drops the backend's placeholder art so the UI renders
// its own local placeholder instead.
func normalizeImageURL(url string) string {
	if url == "" {
		return ""
	}
	if strings.Contains(url, "placeholder") || strings.Contains(url, "200x300") || strings.Contains(url, "text=") {
		return ""
	}
	return url
}

// ParseAvailability decodes the stock endpoint response: either a bare
// number or an object carrying the quantity under one of several names.
func ParseAvailability(body []byte) (int, error) {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, err, "undecodable stock payload")
	}

	switch value := decoded.(type) {
	case float64:
		return clampAvailable(value), nil
	case map[string]any:
		for _, field := range availabilityFields {
			if qty, ok := value[field]; ok {
				if parsed, ok := asInt(qty); ok {
					return clampNonNegative(parsed), nil
				}
			}
		}
		return 0, pkgerrors.New(pkgerrors.CodeRemoteUnavailable, "stock payload carries no recognizable quantity")
	default:
		return 0, pkgerrors.New(pkgerrors.CodeRemoteUnavailable, fmt.Sprintf("unexpected stock payload type %T", decoded))
	}
}

func clampAvailable(value float64) int {
	if value < 0 || math.IsNaN(value) {
		return 0
	}
	return int(value)
}

func clampNonNegative(value int) int {
	if value < 0 {
		return 0
	}
	return value
}

func lookup(raw map[string]any, path []string) (any, bool) {
	current := any(raw)
	for _, segment := range path {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		value, ok := node[segment]
		if !ok || value == nil {
			return nil, false
		}
		current = value
	}
	return current, true
}

func lookupString(raw map[string]any, paths [][]string) string {
	for _, path := range paths {
		value, ok := lookup(raw, path)
		if !ok {
			continue
		}
		switch typed := value.(type) {
		case string:
			if trimmed := strings.TrimSpace(typed); trimmed != "" {
				return trimmed
			}
		case float64:
			return formatNumericID(typed)
		}
	}
	return ""
}

func lookupInt(raw map[string]any, paths [][]string) (int, bool) {
	for _, path := range paths {
		value, ok := lookup(raw, path)
		if !ok {
			continue
		}
		if parsed, ok := asInt(value); ok {
			return parsed, true
		}
	}
	return 0, false
}

func lookupIntPtr(raw map[string]any, paths [][]string) *int {
	if value, ok := lookupInt(raw, paths); ok {
		clamped := clampNonNegative(value)
		return &clamped
	}
	return nil
}

func lookupInt64Ptr(raw map[string]any, paths [][]string) *int64 {
	for _, path := range paths {
		value, ok := lookup(raw, path)
		if !ok {
			continue
		}
		if parsed, ok := asInt64(value); ok {
			return &parsed
		}
	}
	return nil
}

func asInt(value any) (int, bool) {
	parsed, ok := asInt64(value)
	return int(parsed), ok
}

func asInt64(value any) (int64, bool) {
	switch typed := value.(type) {
	case float64:
		if math.IsNaN(typed) || math.IsInf(typed, 0) {
			return 0, false
		}
		return int64(typed), true
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func formatNumericID(value float64) string {
	if value == math.Trunc(value) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
