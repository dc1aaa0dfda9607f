package models

type IssueKind string

const (
	KindMissingColumns   IssueKind = "missing_columns"
	KindInvalidOwner     IssueKind = "invalid_owner"
	KindInvalidPlatform  IssueKind = "invalid_platform"
	KindNullValue        IssueKind = "null_value"
	KindInvalidNumber    IssueKind = "invalid_number"
	KindNegativeOrders   IssueKind = "negative_orders"
	KindSuspiciousAmount IssueKind = "suspicious_amount"
	KindTotalMismatch    IssueKind = "total_mismatch"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single validation finding. Row is the zero-based data row index.
type Issue struct {
	Kind     IssueKind `json:"type"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	Row      *int      `json:"row,omitempty"`
	Field    string    `json:"field,omitempty"`
	Value    any       `json:"value,omitempty"`
}

type IssueSummary struct {
	TotalErrors    int               `json:"total_errors"`
	TotalWarnings  int               `json:"total_warnings"`
	ErrorTypes     map[IssueKind]int `json:"error_types"`
	WarningTypes   map[IssueKind]int `json:"warning_types"`
	ErrorDetails   []Issue           `json:"error_details"`
	WarningDetails []Issue           `json:"warning_details"`
}

// ValidationReport is returned by the validator whether or not the table passed.
type ValidationReport struct {
	Passed  bool         `json:"passed"`
	Issues  []Issue      `json:"-"`
	Summary IssueSummary `json:"summary"`
}

func (r ValidationReport) Errors() []Issue   { return r.filter(SeverityError) }
func (r ValidationReport) Warnings() []Issue { return r.filter(SeverityWarning) }

func (r ValidationReport) filter(sev Severity) []Issue {
	out := make([]Issue, 0)
	for _, is := range r.Issues {
		if is.Severity == sev {
			out = append(out, is)
		}
	}
	return out
}

// Summarize counts issues per kind and splits them by severity.
func Summarize(issues []Issue) IssueSummary {
	s := IssueSummary{
		ErrorTypes:     map[IssueKind]int{},
		WarningTypes:   map[IssueKind]int{},
		ErrorDetails:   make([]Issue, 0),
		WarningDetails: make([]Issue, 0),
	}
	for _, is := range issues {
		switch is.Severity {
		case SeverityError:
			s.TotalErrors++
			s.ErrorTypes[is.Kind]++
			s.ErrorDetails = append(s.ErrorDetails, is)
		case SeverityWarning:
			s.TotalWarnings++
			s.WarningTypes[is.Kind]++
			s.WarningDetails = append(s.WarningDetails, is)
		}
	}
	return s
}
