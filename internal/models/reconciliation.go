package models

import "time"

// StoreRef carries the row context of a store that needs attention.
type StoreRef struct {
	StoreID       string `json:"store_id"`
	Name          string `json:"name"`
	Platform      string `json:"platform"`
	BillOwner     string `json:"bill_owner"`
	DepositStatus string `json:"deposit_status"`
	Row           int    `json:"row"`
	Issue         string `json:"issue,omitempty"`
}

const (
	IssueMissingStoreID = "Missing Store ID"
	IssueNotInMaster    = "Not in Master Sheet"
)

type PotentialMatch struct {
	InvoiceName string  `json:"invoice_name"`
	MasterName  string  `json:"master_name"`
	Similarity  float64 `json:"similarity"`
}

type ReconciliationSummary struct {
	MatchedCount          int     `json:"matched_count"`
	MissingInMasterCount  int     `json:"missing_in_master_count"`
	MissingInInvoiceCount int     `json:"missing_in_invoice_count"`
	BlankKeyCount         int     `json:"blank_key_count"`
	PotentialMatchesCount int     `json:"potential_matches_count"`
	TotalInvoiceStores    int     `json:"total_invoice_stores"`
	TotalMasterStores     int     `json:"total_master_stores"`
	MatchPercentage       float64 `json:"match_percentage"`
}

// ReconciliationResult compares a transactional table with the master list.
// Key sets are sorted. Potential matches are candidates for review only.
type ReconciliationResult struct {
	Matched          []string              `json:"matched_stores"`
	MissingInMaster  []string              `json:"missing_in_master"`
	MissingInInvoice []string              `json:"missing_in_invoice"`
	MissingStores    []StoreRef            `json:"missing_stores,omitempty"`
	BlankKeys        []StoreRef            `json:"blank_keys,omitempty"`
	PotentialMatches []PotentialMatch      `json:"potential_matches"`
	Summary          ReconciliationSummary `json:"summary"`
	Recommendations  []string              `json:"recommendations"`
	Timestamp        time.Time             `json:"timestamp"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// DepositStatusReport checks upstream match flags against the master list.
type DepositStatusReport struct {
	StatusCounts                []StatusCount  `json:"status_counts"`
	MatchedCount                int            `json:"matched_count"`
	UnmatchedCount              int            `json:"unmatched_count"`
	FalseCount                  int            `json:"false_count"`
	TotalStores                 int            `json:"total_stores"`
	PlatformDistribution        map[string]int `json:"platform_distribution"`
	MissingStoreIDs             []StoreRef     `json:"missing_store_ids"`
	NotInMaster                 []StoreRef     `json:"not_in_master"`
	StoresRequiringVerification []StoreRef     `json:"stores_requiring_verification"`
}
