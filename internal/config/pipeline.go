package config

import (
	"errors"
	"fmt"
	"time"

	"payout-invoice-backend/internal/models"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type ColumnType string

const (
	TypeString  ColumnType = "string"
	TypeInteger ColumnType = "integer"
	TypeNumber  ColumnType = "number"
)

func (t ColumnType) Numeric() bool { return t == TypeInteger || t == TypeNumber }

type ColumnSpec struct {
	Name string     `yaml:"name" json:"name"`
	Type ColumnType `yaml:"type" json:"type"`
}

// Pipeline holds every tunable of the validate/aggregate/reconcile/generate pipeline.
type Pipeline struct {
	RequiredColumns           []ColumnSpec
	AllowedPlatforms          []string
	SuspiciousPayoutThreshold float64
	NegativeOrderThreshold    float64
	MaxPayoutVarianceRatio    float64
	FuzzyThreshold            float64
	MaxFuzzyComparisons       int
	BatchSize                 int
	Workers                   int
	BatchPause                time.Duration
	RenderTimeout             time.Duration
}

func DefaultPipeline() Pipeline {
	return Pipeline{
		RequiredColumns: []ColumnSpec{
			{Name: models.ColOwner, Type: TypeString},
			{Name: models.ColPlatform, Type: TypeString},
			{Name: models.ColPeriod, Type: TypeString},
			{Name: models.ColRestaurant, Type: TypeString},
			{Name: models.ColOrderCount, Type: TypeInteger},
			{Name: models.ColTotalPayout, Type: TypeNumber},
			{Name: models.ColSubtotal, Type: TypeNumber},
			{Name: models.ColPassedOnTax, Type: TypeNumber},
			{Name: models.ColFacilitatorTax, Type: TypeNumber},
			{Name: models.ColMarketplaceFee, Type: TypeNumber},
			{Name: models.ColAdditionalFees, Type: TypeNumber},
			{Name: models.ColAdFee, Type: TypeNumber},
			{Name: models.ColFinalNetPayout, Type: TypeNumber},
		},
		AllowedPlatforms:          []string{"DoorDash", "Grubhub", "UberEats"},
		SuspiciousPayoutThreshold: 1_000_000,
		NegativeOrderThreshold:    0,
		MaxPayoutVarianceRatio:    1.1,
		FuzzyThreshold:            0.85,
		MaxFuzzyComparisons:       250_000,
		BatchSize:                 5,
		Workers:                   5,
		BatchPause:                500 * time.Millisecond,
		RenderTimeout:             60 * time.Second,
	}
}

// Overrides is a sparse patch over Pipeline. Nil fields keep the base value.
type Overrides struct {
	RequiredColumns           []ColumnSpec `yaml:"required_columns" json:"required_columns,omitempty"`
	AllowedPlatforms          []string     `yaml:"allowed_platforms" json:"allowed_platforms,omitempty"`
	SuspiciousPayoutThreshold *float64     `yaml:"suspicious_payout_threshold" json:"suspicious_payout_threshold,omitempty"`
	NegativeOrderThreshold    *float64     `yaml:"negative_order_threshold" json:"negative_order_threshold,omitempty"`
	MaxPayoutVarianceRatio    *float64     `yaml:"max_payout_variance_ratio" json:"max_payout_variance_ratio,omitempty"`
	FuzzyThreshold            *float64     `yaml:"fuzzy_threshold" json:"fuzzy_threshold,omitempty"`
	MaxFuzzyComparisons       *int         `yaml:"max_fuzzy_comparisons" json:"max_fuzzy_comparisons,omitempty"`
	BatchSize                 *int         `yaml:"batch_size" json:"batch_size,omitempty"`
	Workers                   *int         `yaml:"workers" json:"workers,omitempty"`
	BatchPause                *Duration    `yaml:"batch_pause" json:"batch_pause,omitempty"`
	RenderTimeout             *Duration    `yaml:"render_timeout" json:"render_timeout,omitempty"`
}

// Apply returns a copy of p with o laid on top, validated.
func (p Pipeline) Apply(o *Overrides) (Pipeline, error) {
	out := p
	out.RequiredColumns = append([]ColumnSpec(nil), p.RequiredColumns...)
	out.AllowedPlatforms = append([]string(nil), p.AllowedPlatforms...)
	if o != nil {
		if o.RequiredColumns != nil {
			out.RequiredColumns = append([]ColumnSpec(nil), o.RequiredColumns...)
		}
		if o.AllowedPlatforms != nil {
			out.AllowedPlatforms = append([]string(nil), o.AllowedPlatforms...)
		}
		if o.SuspiciousPayoutThreshold != nil {
			out.SuspiciousPayoutThreshold = *o.SuspiciousPayoutThreshold
		}
		if o.NegativeOrderThreshold != nil {
			out.NegativeOrderThreshold = *o.NegativeOrderThreshold
		}
		if o.MaxPayoutVarianceRatio != nil {
			out.MaxPayoutVarianceRatio = *o.MaxPayoutVarianceRatio
		}
		if o.FuzzyThreshold != nil {
			out.FuzzyThreshold = *o.FuzzyThreshold
		}
		if o.MaxFuzzyComparisons != nil {
			out.MaxFuzzyComparisons = *o.MaxFuzzyComparisons
		}
		if o.BatchSize != nil {
			out.BatchSize = *o.BatchSize
		}
		if o.Workers != nil {
			out.Workers = *o.Workers
		}
		if o.BatchPause != nil {
			out.BatchPause = o.BatchPause.Duration
		}
		if o.RenderTimeout != nil {
			out.RenderTimeout = o.RenderTimeout.Duration
		}
	}
	if err := out.Validate(); err != nil {
		return Pipeline{}, err
	}
	return out, nil
}

func (p Pipeline) Validate() error {
	if len(p.RequiredColumns) == 0 {
		return fmt.Errorf("%w: required_columns is empty", ErrInvalidConfig)
	}
	for _, c := range p.RequiredColumns {
		if c.Name == "" {
			return fmt.Errorf("%w: required column without a name", ErrInvalidConfig)
		}
		switch c.Type {
		case TypeString, TypeInteger, TypeNumber:
		default:
			return fmt.Errorf("%w: column %q has unknown type %q", ErrInvalidConfig, c.Name, c.Type)
		}
	}
	switch {
	case p.SuspiciousPayoutThreshold <= 0:
		return fmt.Errorf("%w: suspicious_payout_threshold must be positive", ErrInvalidConfig)
	case p.MaxPayoutVarianceRatio < 0:
		return fmt.Errorf("%w: max_payout_variance_ratio must not be negative", ErrInvalidConfig)
	case p.FuzzyThreshold < 0 || p.FuzzyThreshold > 1:
		return fmt.Errorf("%w: fuzzy_threshold must be within [0, 1]", ErrInvalidConfig)
	case p.MaxFuzzyComparisons <= 0:
		return fmt.Errorf("%w: max_fuzzy_comparisons must be positive", ErrInvalidConfig)
	case p.BatchSize <= 0:
		return fmt.Errorf("%w: batch_size must be positive", ErrInvalidConfig)
	case p.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case p.BatchPause < 0:
		return fmt.Errorf("%w: batch_pause must not be negative", ErrInvalidConfig)
	case p.RenderTimeout <= 0:
		return fmt.Errorf("%w: render_timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// NumericColumns lists the required columns that must hold numbers, in schema order.
func (p Pipeline) NumericColumns() []ColumnSpec {
	var out []ColumnSpec
	for _, c := range p.RequiredColumns {
		if c.Type.Numeric() {
			out = append(out, c)
		}
	}
	return out
}

// Duration decodes "500ms"-style strings from YAML and JSON.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}
