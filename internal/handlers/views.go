package handlers

import (
	"html/template"
	"strings"

	"sales-dashboard/internal/ui/format"
)

const maxTableRows = 100

const fragmentsHTML = `
{{define "overview"}}<div id="overview-content" class="kpi-grid">
<div class="kpi"><span class="kpi-label">Clientes</span><strong>{{int .Customers}}</strong></div>
<div class="kpi"><span class="kpi-label">Total vendido</span><strong>{{money .TotalValue}}</strong></div>
<div class="kpi"><span class="kpi-label">Média por cliente</span><strong>{{money .AvgPerCustomer}}</strong></div>
</div>{{end}}

{{define "periods"}}<div id="periods-content">
<table class="modern-table">
<thead><tr><th>{{.Label}}</th><th>Total</th><th>Clientes</th><th>Transações</th><th>Média por cliente</th><th>Média por transação</th>{{if .Week}}<th>Meses</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr>
<td>{{.Period}}</td>
<td><strong>{{money .TotalValue}}</strong></td>
<td>{{int .Customers}}</td>
<td>{{int .Transactions}}</td>
<td>{{money .AvgPerCustomer}}</td>
<td>{{money .AvgPerTransaction}}</td>
{{if $.Week}}<td>{{.Months}}</td>{{end}}
</tr>
{{else}}<tr><td colspan="7">Sem dados para o período</td></tr>
{{end}}</tbody>
</table>
{{if .Dropped}}<p class="note">{{int .Dropped}} linhas ignoradas por valores inválidos</p>{{end}}
</div>{{end}}

{{define "products"}}<div id="products-content">
<table class="modern-table">
<thead><tr><th>#</th><th>Código</th><th>Produto</th><th>Quantidade</th><th>Total</th></tr></thead>
<tbody>
{{range $i, $p := .Rows}}<tr>
<td>{{inc $i}}</td>
<td>{{$p.Code}}</td>
<td>{{if $p.Registered}}{{$p.Name}}{{else}}<span class="muted">{{$p.Name}}</span>{{end}}</td>
<td>{{num $p.Quantity}}</td>
<td><strong>{{money $p.TotalValue}}</strong></td>
</tr>
{{end}}</tbody>
</table>
<p class="note">Top {{int (len .Rows)}} de {{int .Total}} produtos{{if .Unregistered}}, {{int .Unregistered}} sem cadastro{{end}}</p>
</div>{{end}}

{{define "turnover"}}<div id="turnover-content">
{{if .Periods}}<select data-bind-period data-on-change="@get('/sse/turnover')">
{{range .Periods}}<option value="{{.}}"{{if eq . $.Period}} selected{{end}}>{{.}}</option>
{{end}}</select>{{end}}
<h3>{{.Period}}</h3>
<table class="modern-table">
<thead><tr><th>Produto</th><th>Quantidade</th></tr></thead>
<tbody>
{{range .Rows}}<tr><td>{{.Product}}</td><td>{{num .Quantity}}</td></tr>
{{else}}<tr><td colspan="2">Sem vendas no período</td></tr>
{{end}}</tbody>
</table>
</div>{{end}}

{{define "customers"}}<div id="customers-content">
<div class="kpi-grid">
<div class="kpi"><span class="kpi-label">Clientes</span><strong>{{int .KPIs.Customers}}</strong></div>
<div class="kpi"><span class="kpi-label">Clientes recorrentes</span><strong>{{int .KPIs.Returning}}</strong></div>
<div class="kpi"><span class="kpi-label">Taxa de retorno</span><strong>{{pct .KPIs.ReturnRate}}</strong></div>
</div>
<table class="modern-table">
<thead><tr><th>Cliente</th><th>Compras</th><th>Quantidade</th><th>Total</th><th>Ticket médio</th></tr></thead>
<tbody>
{{range .Rows}}<tr>
<td>{{.CustomerID}}</td>
<td>{{int .Purchases}}</td>
<td>{{num .Quantity}}</td>
<td><strong>{{money .TotalValue}}</strong></td>
<td>{{money .AverageTicket}}</td>
</tr>
{{end}}</tbody>
</table>
{{if gt .KPIs.Customers (len .Rows)}}<p class="note">Mostrando {{int (len .Rows)}} de {{int .KPIs.Customers}} clientes</p>{{end}}
</div>{{end}}

{{define "error"}}<div id="error-banner" class="error-banner">{{.Message}}{{with .Details}}: {{.}}{{end}}</div>{{end}}
`

func newViews(f *format.Formatter) *template.Template {
	return template.Must(template.New("fragments").Funcs(template.FuncMap{
		"money": f.Currency,
		"num":   f.Number,
		"int":   f.Int,
		"pct":   f.Percent,
		"inc":   func(i int) int { return i + 1 },
	}).Parse(fragmentsHTML))
}

func render(t *template.Template, name string, data any) (string, error) {
	var buf strings.Builder
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
