// Package templates renders the dashboard pages. Each page is a static shell
// whose sections load their content from the datastar SSE endpoints.
package templates

//go:generate templ generate

import (
	"encoding/json"

	"sales-dashboard/internal/aggregate"
)

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.5/bundles/datastar.js"

// Settings are the initial values of the page signals.
type Settings struct {
	Dimension      aggregate.Dimension
	Top            int
	Strategy       aggregate.PurchaseCount
	IgnoreSentinel bool
}

func DefaultSettings() Settings {
	return Settings{
		Dimension:      aggregate.Month,
		Top:            10,
		Strategy:       aggregate.PurchasesByInvoice,
		IgnoreSentinel: true,
	}
}

func (s Settings) signals() string {
	if s.Dimension == 0 {
		s.Dimension = aggregate.Month
	}
	data, _ := json.Marshal(map[string]any{
		"dimension":      s.Dimension.String(),
		"period":         "",
		"top":            s.Top,
		"strategy":       s.Strategy.String(),
		"ignoreSentinel": s.IgnoreSentinel,
	})
	return string(data)
}

type navLink struct {
	path, label string
}

var navLinks = []navLink{
	{"/", "Indicadores gerais"},
	{"/products", "Produtos"},
	{"/customers", "Clientes"},
}

// get is the datastar action fetching an SSE endpoint.
func get(endpoint string) string {
	return "@get('" + endpoint + "')"
}
