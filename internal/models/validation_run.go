package models

import (
	"encoding/json"
	"time"
)

type RunStatus string

const (
	RunValid   RunStatus = "valid"
	RunInvalid RunStatus = "invalid"
)

// RunParams are the request parameters a run was validated with.
type RunParams struct {
	SpreadsheetID string `json:"spreadsheet_id,omitempty" msgpack:"spreadsheet_id"`
	RangeName     string `json:"range_name,omitempty" msgpack:"range_name"`
	Source        string `json:"source,omitempty" msgpack:"source"`
	MaxPDFs       int    `json:"max_pdfs" msgpack:"max_pdfs"`
	CustomerID    string `json:"customer_id,omitempty" msgpack:"customer_id"`
	// Overrides holds the request's pipeline overrides as JSON, re-applied at generation.
	Overrides json.RawMessage `json:"-" msgpack:"overrides"`
}

// ValidationRun is the state kept between validate and generate. It is single use:
// generation consumes it.
type ValidationRun struct {
	ID        string         `json:"id" msgpack:"id"`
	Status    RunStatus      `json:"status" msgpack:"status"`
	Params    RunParams      `json:"params" msgpack:"params"`
	Invoices  []OwnerInvoice `json:"invoices,omitempty" msgpack:"invoices"`
	CreatedAt time.Time      `json:"created_at" msgpack:"created_at"`
}

func (r *ValidationRun) Passed() bool { return r.Status == RunValid }

// DataSummary describes the validated table for display.
type DataSummary struct {
	TotalRecords      int            `json:"total_records"`
	UniqueBillOwners  int            `json:"unique_bill_owners"`
	DateRange         string         `json:"date_range"`
	Platforms         []string       `json:"platforms"`
	SampleRestaurants []string       `json:"sample_restaurants"`
	TotalOrders       int64          `json:"total_orders"`
	TotalPayout       string         `json:"total_payout"`
	PlatformBreakdown map[string]int `json:"platform_breakdown"`
}

type ValidationResponse struct {
	ValidationID      string       `json:"validation_id"`
	Status            RunStatus    `json:"status"`
	Message           string       `json:"message"`
	DataSummary       DataSummary  `json:"data_summary"`
	ValidationSummary IssueSummary `json:"validation_summary"`
	ErrorDetails      []Issue      `json:"error_details"`
	WarningDetails    []Issue      `json:"warning_details"`
}
