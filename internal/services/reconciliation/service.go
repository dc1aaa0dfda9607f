package reconciliation

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"payout-invoice-backend/internal/config"
	"payout-invoice-backend/internal/models"
	"payout-invoice-backend/internal/services/matching"

	"go.uber.org/zap"
)

var ErrMissingColumn = errors.New("required column missing")

// Upstream markers that count as a confirmed deposit match.
var matchedStatuses = map[string]bool{"Matched": true, "True": true}

const falseStatus = "False"

// ReconciliationService compares a transactional store table with the master store
// list. It only reports; neither table is modified.
type ReconciliationService struct {
	matcher *matching.Matcher
	logger  *zap.Logger
	now     func() time.Time
}

func NewReconciliationService(cfg config.Pipeline, logger *zap.Logger) *ReconciliationService {
	return &ReconciliationService{
		matcher: matching.NewMatcher(cfg.FuzzyThreshold, cfg.MaxFuzzyComparisons, logger),
		logger:  logger,
		now:     time.Now,
	}
}

// CompareStoreIDs reconciles the two tables on store id. Entries whose ids failed to
// match on either side are then compared by restaurant name to surface candidates
// for manual review.
func (s *ReconciliationService) CompareStoreIDs(invoice, master models.Table) (models.ReconciliationResult, error) {
	if err := requireColumns("invoice", invoice, models.ColStoreID); err != nil {
		return models.ReconciliationResult{}, err
	}
	if err := requireColumns("master", master, models.ColStoreID); err != nil {
		return models.ReconciliationResult{}, err
	}

	invoiceIDs := map[string]models.StoreRef{}
	var blank []models.StoreRef
	for i, row := range invoice.Rows {
		ref := storeRef(i, row)
		if isBlankKey(ref.StoreID) {
			ref.Issue = models.IssueMissingStoreID
			blank = append(blank, ref)
			continue
		}
		if _, ok := invoiceIDs[ref.StoreID]; !ok {
			invoiceIDs[ref.StoreID] = ref
		}
	}

	masterIDs := map[string]string{}
	for _, row := range master.Rows {
		id := row.Text(models.ColStoreID)
		if isBlankKey(id) {
			continue
		}
		if _, ok := masterIDs[id]; !ok {
			masterIDs[id] = row.Text(models.ColMasterRestaurant)
		}
	}

	result := models.ReconciliationResult{
		Matched:          []string{},
		MissingInMaster:  []string{},
		MissingInInvoice: []string{},
		MissingStores:    []models.StoreRef{},
		BlankKeys:        blank,
		Timestamp:        s.now(),
	}
	if result.BlankKeys == nil {
		result.BlankKeys = []models.StoreRef{}
	}

	for id, ref := range invoiceIDs {
		if _, ok := masterIDs[id]; ok {
			result.Matched = append(result.Matched, id)
			continue
		}
		result.MissingInMaster = append(result.MissingInMaster, id)
		ref.Issue = models.IssueNotInMaster
		result.MissingStores = append(result.MissingStores, ref)
	}
	for id := range masterIDs {
		if _, ok := invoiceIDs[id]; !ok {
			result.MissingInInvoice = append(result.MissingInInvoice, id)
		}
	}
	sort.Strings(result.Matched)
	sort.Strings(result.MissingInMaster)
	sort.Strings(result.MissingInInvoice)
	sort.Slice(result.MissingStores, func(i, j int) bool {
		return result.MissingStores[i].StoreID < result.MissingStores[j].StoreID
	})

	var left, right []string
	for _, id := range result.MissingInMaster {
		left = append(left, invoiceIDs[id].Name)
	}
	for _, id := range result.MissingInInvoice {
		right = append(right, masterIDs[id])
	}
	result.PotentialMatches = s.matcher.Candidates(left, right)

	result.Summary = summarize(result, len(invoiceIDs), len(masterIDs))
	result.Recommendations = recommendations(result)

	s.logger.Info("store id reconciliation finished",
		zap.Int("matched", result.Summary.MatchedCount),
		zap.Int("missing_in_master", result.Summary.MissingInMasterCount),
		zap.Int("missing_in_invoice", result.Summary.MissingInInvoiceCount),
		zap.Int("blank_keys", result.Summary.BlankKeyCount),
		zap.Int("potential_matches", result.Summary.PotentialMatchesCount),
	)
	return result, nil
}

// CompareStoreNames reconciles on cleaned restaurant names instead of ids.
func (s *ReconciliationService) CompareStoreNames(invoice, master models.Table) (models.ReconciliationResult, error) {
	if err := requireColumns("invoice", invoice, models.ColRestaurant); err != nil {
		return models.ReconciliationResult{}, err
	}
	if err := requireColumns("master", master, models.ColMasterRestaurant); err != nil {
		return models.ReconciliationResult{}, err
	}

	invoiceNames := nameSet(invoice, models.ColRestaurant)
	masterNames := nameSet(master, models.ColMasterRestaurant)

	result := models.ReconciliationResult{
		Matched:          []string{},
		MissingInMaster:  []string{},
		MissingInInvoice: []string{},
		Timestamp:        s.now(),
	}
	for n := range invoiceNames {
		if masterNames[n] {
			result.Matched = append(result.Matched, n)
		} else {
			result.MissingInMaster = append(result.MissingInMaster, n)
		}
	}
	for n := range masterNames {
		if !invoiceNames[n] {
			result.MissingInInvoice = append(result.MissingInInvoice, n)
		}
	}
	sort.Strings(result.Matched)
	sort.Strings(result.MissingInMaster)
	sort.Strings(result.MissingInInvoice)

	result.PotentialMatches = s.matcher.Candidates(result.MissingInMaster, result.MissingInInvoice)
	result.Summary = summarize(result, len(invoiceNames), len(masterNames))
	result.Recommendations = recommendations(result)

	s.logger.Info("store name reconciliation finished",
		zap.Int("matched", result.Summary.MatchedCount),
		zap.Float64("match_percentage", result.Summary.MatchPercentage),
	)
	return result, nil
}

// AnalyzeDepositStatus classifies invoice rows by their upstream deposit match flag
// and checks that every row flagged as matched has a store id present in the master
// list. A flagged row failing that check carries a stale or wrong flag.
func (s *ReconciliationService) AnalyzeDepositStatus(invoice, master models.Table) (models.DepositStatusReport, error) {
	if err := requireColumns("invoice", invoice, models.ColStoreID, models.ColDepositStatus); err != nil {
		return models.DepositStatusReport{}, err
	}
	if err := requireColumns("master", master, models.ColStoreID); err != nil {
		return models.DepositStatusReport{}, err
	}

	masterIDs := map[string]struct{}{}
	for _, row := range master.Rows {
		if id := row.Text(models.ColStoreID); !isBlankKey(id) {
			masterIDs[id] = struct{}{}
		}
	}

	report := models.DepositStatusReport{
		StatusCounts:                []models.StatusCount{},
		TotalStores:                 len(invoice.Rows),
		PlatformDistribution:        map[string]int{},
		MissingStoreIDs:             []models.StoreRef{},
		NotInMaster:                 []models.StoreRef{},
		StoresRequiringVerification: []models.StoreRef{},
	}
	statusIndex := map[string]int{}

	for i, row := range invoice.Rows {
		status := row.Text(models.ColDepositStatus)
		idx, ok := statusIndex[status]
		if !ok {
			idx = len(report.StatusCounts)
			statusIndex[status] = idx
			report.StatusCounts = append(report.StatusCounts, models.StatusCount{Status: status})
		}
		report.StatusCounts[idx].Count++

		if status == falseStatus {
			report.FalseCount++
		}
		if !matchedStatuses[status] {
			report.UnmatchedCount++
			continue
		}
		report.MatchedCount++

		ref := storeRef(i, row)
		report.PlatformDistribution[ref.Platform]++

		if isBlankKey(ref.StoreID) {
			ref.Issue = models.IssueMissingStoreID
			report.MissingStoreIDs = append(report.MissingStoreIDs, ref)
			report.StoresRequiringVerification = append(report.StoresRequiringVerification, ref)
			continue
		}
		if _, ok := masterIDs[ref.StoreID]; !ok {
			ref.Issue = models.IssueNotInMaster
			report.NotInMaster = append(report.NotInMaster, ref)
			report.StoresRequiringVerification = append(report.StoresRequiringVerification, ref)
		}
	}

	s.logger.Info("deposit status analysis finished",
		zap.Int("total", report.TotalStores),
		zap.Int("matched", report.MatchedCount),
		zap.Int("missing_store_ids", len(report.MissingStoreIDs)),
		zap.Int("not_in_master", len(report.NotInMaster)),
	)
	return report, nil
}

func requireColumns(side string, table models.Table, cols ...string) error {
	for _, c := range cols {
		if !table.HasColumn(c) {
			return fmt.Errorf("%s table: %w: %s", side, ErrMissingColumn, c)
		}
	}
	return nil
}

func isBlankKey(id string) bool {
	switch strings.ToLower(strings.TrimSpace(id)) {
	case "", "n/a", "nan", "none":
		return true
	}
	return false
}

func storeRef(index int, row models.Record) models.StoreRef {
	platform := row.Text(models.ColPlatform)
	if platform == "" {
		platform = row.Text(models.ColPlatform2)
	}
	return models.StoreRef{
		StoreID:       row.Text(models.ColStoreID),
		Name:          row.Text(models.ColRestaurant),
		Platform:      platform,
		BillOwner:     row.Text(models.ColOwner),
		DepositStatus: row.Text(models.ColDepositStatus),
		Row:           index,
	}
}

func nameSet(table models.Table, col string) map[string]bool {
	out := map[string]bool{}
	for _, row := range table.Rows {
		if n := matching.NormalizeName(row.Text(col)); n != "" {
			out[n] = true
		}
	}
	return out
}

func summarize(r models.ReconciliationResult, invoiceTotal, masterTotal int) models.ReconciliationSummary {
	sum := models.ReconciliationSummary{
		MatchedCount:          len(r.Matched),
		MissingInMasterCount:  len(r.MissingInMaster),
		MissingInInvoiceCount: len(r.MissingInInvoice),
		BlankKeyCount:         len(r.BlankKeys),
		PotentialMatchesCount: len(r.PotentialMatches),
		TotalInvoiceStores:    invoiceTotal,
		TotalMasterStores:     masterTotal,
	}
	if invoiceTotal > 0 {
		sum.MatchPercentage = math.Round(float64(len(r.Matched))/float64(invoiceTotal)*10000) / 100
	}
	return sum
}

func recommendations(r models.ReconciliationResult) []string {
	out := []string{}
	if n := len(r.BlankKeys); n > 0 {
		out = append(out, fmt.Sprintf("Obtain valid store IDs for %d rows with a blank store ID", n))
	}
	if n := len(r.MissingInMaster); n > 0 {
		out = append(out, fmt.Sprintf("Add %d missing stores to master data", n))
	}
	if n := len(r.PotentialMatches); n > 0 {
		out = append(out, fmt.Sprintf("Review %d potential matches for similar names", n))
	}
	return out
}
