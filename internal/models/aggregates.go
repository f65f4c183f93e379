package models

import "github.com/shopspring/decimal"

type PeriodSummary struct {
	Period            string          `json:"period"`
	TotalValue        decimal.Decimal `json:"total_value"`
	Customers         int             `json:"customers"`
	Transactions      int             `json:"transactions"`
	AvgPerCustomer    decimal.Decimal `json:"avg_per_customer"`
	AvgPerTransaction decimal.Decimal `json:"avg_per_transaction"`
	Months            string          `json:"months,omitempty"`
}

type ProductSales struct {
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	Quantity   decimal.Decimal `json:"quantity"`
	TotalValue decimal.Decimal `json:"total_value"`
	Registered bool            `json:"registered"`
}

type TurnoverRow struct {
	Period   string          `json:"period"`
	Product  string          `json:"product"`
	Quantity decimal.Decimal `json:"quantity"`
}

type CustomerSummary struct {
	CustomerID    int64           `json:"customer_id"`
	TotalValue    decimal.Decimal `json:"total_value"`
	Purchases     int             `json:"purchases"`
	Quantity      decimal.Decimal `json:"quantity"`
	AverageTicket decimal.Decimal `json:"average_ticket"`
}

type CustomerKPIs struct {
	Customers  int     `json:"customers"`
	Returning  int     `json:"returning"`
	ReturnRate float64 `json:"return_rate"`
}

type Overview struct {
	Customers      int             `json:"customers"`
	TotalValue     decimal.Decimal `json:"total_value"`
	AvgPerCustomer decimal.Decimal `json:"avg_per_customer"`
}
