package catalog

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func decodeLine(t *testing.T, payload string) map[string]any {
	t.Helper()
	var raw map[string]any
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		t.Fatalf("bad test payload: %v", err)
	}
	return raw
}

func TestParsePriceLocaleComma(t *testing.T) {
	t.Parallel()

	price, ok := ParsePrice("49,90")
	if !ok {
		t.Fatalf("expected parseable price")
	}
	if !price.Equal(decimal.RequireFromString("49.90")) {
		t.Fatalf("expected 49.90, got %s", price)
	}
}

func TestParsePriceCurrencyPrefix(t *testing.T) {
	t.Parallel()

	price, ok := ParsePrice("R$ 19,90")
	if !ok {
		t.Fatalf("expected parseable price")
	}
	if !price.Equal(decimal.RequireFromString("19.90")) {
		t.Fatalf("expected 19.90, got %s", price)
	}
}

func TestParsePriceGarbage(t *testing.T) {
	t.Parallel()

	tests := []any{"abc", "", nil, true, []any{"1"}}
	for _, input := range tests {
		price, ok := ParsePrice(input)
		if ok {
			t.Fatalf("input %v should not parse", input)
		}
		if !price.IsZero() {
			t.Fatalf("unparsable input %v should resolve to zero, got %s", input, price)
		}
	}
}

func TestParsePriceNegativeClampsToZero(t *testing.T) {
	t.Parallel()

	price, ok := ParsePrice("-10,00")
	if !ok {
		t.Fatalf("expected parseable price")
	}
	if !price.IsZero() {
		t.Fatalf("negative price should clamp to zero, got %s", price)
	}
}

func TestNormalizeLineNestedPriceWinsOverZero(t *testing.T) {
	t.Parallel()

	raw := decodeLine(t, `{
		"id_livro": 7,
		"titulo": "Dom Casmurro",
		"preco": "0.00",
		"estoque": {"id_estoque": 12, "preco": "39.90", "quantidade": 4}
	}`)

	line := NormalizeLine(raw)
	if !line.UnitPrice.Equal(decimal.RequireFromString("39.90")) {
		t.Fatalf("expected nested price 39.90, got %s", line.UnitPrice)
	}
	if line.SKUID == nil || *line.SKUID != 12 {
		t.Fatalf("expected sku 12, got %v", line.SKUID)
	}
	if line.AvailableStock == nil || *line.AvailableStock != 4 {
		t.Fatalf("expected available stock 4, got %v", line.AvailableStock)
	}
	if line.ItemID != "7" {
		t.Fatalf("expected item id 7, got %q", line.ItemID)
	}
}

func TestNormalizeLinePriceFallbackTable(t *testing.T) {
	t.Parallel()

	raw := decodeLine(t, `{"id_livro": 3, "titulo": "Sem Preço", "id_estoque": 101}`)

	line := NormalizeLine(raw)
	if !line.UnitPrice.Equal(decimal.RequireFromString("29.90")) {
		t.Fatalf("expected fallback price 29.90, got %s", line.UnitPrice)
	}
}

func TestNormalizeLinePriceDefaultsToZero(t *testing.T) {
	t.Parallel()

	raw := decodeLine(t, `{"id_livro": 3, "titulo": "Sem Preço", "preco": "garbled"}`)

	line := NormalizeLine(raw)
	if !line.UnitPrice.IsZero() {
		t.Fatalf("expected zero price, got %s", line.UnitPrice)
	}
}

func TestNormalizeLineAuthorResolutionOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{
			name:    "author object on line",
			payload: `{"id_livro": 1, "autor": {"nome": "Jorge Amado"}}`,
			want:    "Jorge Amado",
		},
		{
			name:    "author string on line",
			payload: `{"id_livro": 1, "autor": "Cecília Meireles"}`,
			want:    "Cecília Meireles",
		},
		{
			name:    "first of authors array",
			payload: `{"id_livro": 1, "autores": [{"nome_completo": "Érico Veríssimo"}, {"nome": "Outro"}]}`,
			want:    "Érico Veríssimo",
		},
		{
			name:    "wrapped author row",
			payload: `{"id_livro": 1, "autores": [{"autor": {"nome": "Lygia Fagundes Telles"}}]}`,
			want:    "Lygia Fagundes Telles",
		},
		{
			name:    "embedded book author",
			payload: `{"id_livro": 1, "estoque": {"livro": {"autor": {"nome": "Rachel de Queiroz"}}}}`,
			want:    "Rachel de Queiroz",
		},
		{
			name:    "title fallback table",
			payload: `{"id_livro": 1, "titulo": "Vidas Secas"}`,
			want:    "Graciliano Ramos",
		},
		{
			name:    "unknown author placeholder",
			payload: `{"id_livro": 1, "titulo": "Obscuro"}`,
			want:    AuthorUnknown,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			line := NormalizeLine(decodeLine(t, tt.payload))
			if line.AuthorDisplay != tt.want {
				t.Fatalf("expected author %q, got %q", tt.want, line.AuthorDisplay)
			}
		})
	}
}

func TestNormalizeLineDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	raw := decodeLine(t, `{"id_livro": 1, "titulo": "Livro", "preco": "10,00"}`)
	before, _ := json.Marshal(raw)
	_ = NormalizeLine(raw)
	after, _ := json.Marshal(raw)
	if string(before) != string(after) {
		t.Fatalf("normalization mutated its input")
	}
}

func TestNormalizeLinePlaceholderImageDropped(t *testing.T) {
	t.Parallel()

	raw := decodeLine(t, `{"id_livro": 1, "capa_url": "https://img.example.com/200x300?text=Livro"}`)
	line := NormalizeLine(raw)
	if line.ImageURL != "" {
		t.Fatalf("placeholder image should be dropped, got %q", line.ImageURL)
	}

	raw = decodeLine(t, `{"id_livro": 1, "capa_url": "https://img.example.com/capas/7.jpg"}`)
	line = NormalizeLine(raw)
	if line.ImageURL != "https://img.example.com/capas/7.jpg" {
		t.Fatalf("real image should be kept, got %q", line.ImageURL)
	}
}

func TestDecodeCartPayloadEnvelopes(t *testing.T) {
	t.Parallel()

	envelopes := []string{
		`[{"id_livro": 1}, {"id_livro": 2}]`,
		`{"items": [{"id_livro": 1}, {"id_livro": 2}]}`,
		`{"itens": [{"id_livro": 1}, {"id_livro": 2}]}`,
		`{"data": [{"id_livro": 1}, {"id_livro": 2}]}`,
	}

	for _, body := range envelopes {
		lines, err := DecodeCartPayload([]byte(body))
		if err != nil {
			t.Fatalf("envelope %s: unexpected error %v", body, err)
		}
		if len(lines) != 2 {
			t.Fatalf("envelope %s: expected 2 lines, got %d", body, len(lines))
		}
	}
}

func TestDecodeCartPayloadGarbage(t *testing.T) {
	t.Parallel()

	if _, err := DecodeCartPayload([]byte("not json")); err == nil {
		t.Fatalf("expected error for invalid json")
	}

	lines, err := DecodeCartPayload([]byte(`{"unrelated": true}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("expected no lines, got %d", len(lines))
	}
}

func TestNormalizeLinesSkipsIdentitylessEntries(t *testing.T) {
	t.Parallel()

	raw := []map[string]any{
		decodeLine(t, `{"id_livro": 1, "titulo": "A"}`),
		decodeLine(t, `{"sinopse": "no identity at all"}`),
		decodeLine(t, `{"id_estoque": 9}`),
	}

	lines := NormalizeLines(raw)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[1].ItemID != "9" {
		t.Fatalf("sku-only line should derive item id from sku, got %q", lines[1].ItemID)
	}
}

func TestParseAvailabilityShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		body string
		want int
	}{
		{body: `7`, want: 7},
		{body: `{"quantidade_disponivel": 5}`, want: 5},
		{body: `{"quantidade": 4}`, want: 4},
		{body: `{"stock": 3}`, want: 3},
		{body: `{"available": 2}`, want: 2},
		{body: `{"disponivel": 1}`, want: 1},
		{body: `{"quantidade_disponivel": -2}`, want: 0},
	}

	for _, tt := range tests {
		got, err := ParseAvailability([]byte(tt.body))
		if err != nil {
			t.Fatalf("body %s: unexpected error %v", tt.body, err)
		}
		if got != tt.want {
			t.Fatalf("body %s: expected %d, got %d", tt.body, tt.want, got)
		}
	}

	if _, err := ParseAvailability([]byte(`{"nada": true}`)); err == nil {
		t.Fatalf("expected error for unrecognized payload")
	}
	if _, err := ParseAvailability([]byte(`"texto"`)); err == nil {
		t.Fatalf("expected error for non-numeric payload")
	}
}
