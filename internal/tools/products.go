package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/monica-concierge/monica/internal/bus"
	"github.com/monica-concierge/monica/internal/catalog"
)

const statusOK = "ok"

// LoadProductsResult is the payload returned by load_products_details.
type LoadProductsResult struct {
	Status         string            `json:"status"`
	ProductDetails []catalog.Product `json:"product_details"`
}

// FormatProductsResult is the payload returned by format_product_response.
type FormatProductsResult struct {
	Status   string              `json:"status"`
	Products []catalog.Selection `json:"products"`
}

// LoadProductsTool hands the model the full catalog. It is the only source
// the agent may recommend from.
type LoadProductsTool struct {
	catalog *catalog.Catalog
}

func NewLoadProductsTool(c *catalog.Catalog) *LoadProductsTool {
	return &LoadProductsTool{catalog: c}
}

func (t *LoadProductsTool) Name() string { return string(ToolLoadProducts) }
func (t *LoadProductsTool) Description() string {
	return "Load product details. Returns the list of every available product with its details."
}
func (t *LoadProductsTool) Parameters() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

// Load returns the catalog payload without going through JSON.
func (t *LoadProductsTool) Load() LoadProductsResult {
	return LoadProductsResult{Status: statusOK, ProductDetails: t.catalog.Products()}
}

func (t *LoadProductsTool) Execute(_ context.Context, _ map[string]any) (string, error) {
	return encodeResult(t.Load())
}

// FormatProductsTool reduces a set of recommended product ids to the
// name/price view and pushes it to the customer's channel as product cards.
type FormatProductsTool struct {
	catalog *catalog.Catalog
	bus     bus.Bus
}

// NewFormatProductsTool creates the tool. b may be nil when there is no
// channel to render cards on (e.g. the catalog CLI).
func NewFormatProductsTool(c *catalog.Catalog, b bus.Bus) *FormatProductsTool {
	return &FormatProductsTool{catalog: c, bus: b}
}

func (t *FormatProductsTool) Name() string { return string(ToolFormatProducts) }
func (t *FormatProductsTool) Description() string {
	return "Formats the list of recommended products into a JSON array for display to the user on the frontend. " +
		"Call this whenever you recommend products. Returns the status of the call and the matching products, " +
		"or an empty list if no product matched."
}
func (t *FormatProductsTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"product_ids": {
				"type": "array",
				"items": {"type": "string"},
				"description": "The list of product ids to format."
			}
		},
		"required": ["product_ids"]
	}`)
}

// Format selects ids from the catalog. Unknown ids are ignored.
func (t *FormatProductsTool) Format(ids []string) FormatProductsResult {
	return FormatProductsResult{Status: statusOK, Products: t.catalog.Select(ids)}
}

func (t *FormatProductsTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	res := t.Format(stringList(params["product_ids"]))

	tc := TurnCtx(ctx)
	if t.bus != nil && tc.Channel != "" && tc.ChatID != "" {
		out := bus.NewOutboundMessage(tc.Channel, tc.ChatID, "")
		out.SetMetadata(map[string]any{bus.MetaProducts: res.Products})
		t.bus.PublishOutbound(out)
	}

	return encodeResult(res)
}

// stringList extracts string entries from a decoded JSON array. A bare string
// counts as a single entry; anything else is ignored.
func stringList(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case string:
		return []string{vv}
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func encodeResult(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	return string(data), nil
}
