package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// SheetOverrides replaces individual sheet defaults for a customer.
type SheetOverrides struct {
	InvoiceSheetID string `yaml:"invoice_sheet_id"`
	InvoiceRange   string `yaml:"invoice_range"`
	MasterSheetID  string `yaml:"master_sheet_id"`
	MasterRange    string `yaml:"master_range"`
	MaxPDFs        *int   `yaml:"max_pdfs"`
}

func (o SheetOverrides) applyTo(d SheetDefaults) SheetDefaults {
	if o.InvoiceSheetID != "" {
		d.InvoiceSheetID = o.InvoiceSheetID
	}
	if o.InvoiceRange != "" {
		d.InvoiceRange = o.InvoiceRange
	}
	if o.MasterSheetID != "" {
		d.MasterSheetID = o.MasterSheetID
	}
	if o.MasterRange != "" {
		d.MasterRange = o.MasterRange
	}
	if o.MaxPDFs != nil {
		d.MaxPDFs = *o.MaxPDFs
	}
	return d
}

type Profile struct {
	Sheets   SheetOverrides `yaml:"sheets"`
	Pipeline *Overrides     `yaml:"pipeline"`
}

// Profiles maps customer ids to their overrides.
type Profiles struct {
	Customers map[string]Profile `yaml:"customers"`
}

func (p *Profiles) Lookup(customerID string) (Profile, bool) {
	if p == nil || customerID == "" {
		return Profile{}, false
	}
	prof, ok := p.Customers[customerID]
	return prof, ok
}

func LoadProfiles(path string) (*Profiles, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read customer profiles %s: %w", path, err)
	}
	return ParseProfiles(raw)
}

// ParseProfiles decodes profiles strictly: unknown keys are rejected, and every
// profile must produce a valid pipeline on top of the defaults.
func ParseProfiles(raw []byte) (*Profiles, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var p Profiles
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: customer profiles: %v", ErrInvalidConfig, err)
	}
	base := DefaultPipeline()
	for id, prof := range p.Customers {
		if _, err := base.Apply(prof.Pipeline); err != nil {
			return nil, fmt.Errorf("customer %q: %w", id, err)
		}
	}
	return &p, nil
}
