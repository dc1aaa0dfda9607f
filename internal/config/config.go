package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// SheetDefaults are the sheet ids and ranges used when a request leaves them out.
type SheetDefaults struct {
	InvoiceSheetID string `yaml:"invoice_sheet_id"`
	InvoiceRange   string `yaml:"invoice_range"`
	MasterSheetID  string `yaml:"master_sheet_id"`
	MasterRange    string `yaml:"master_range"`
	MaxPDFs        int    `yaml:"max_pdfs"`
}

type AppConfig struct {
	Port              string
	AllowedOrigins    []string
	OutputDir         string
	CredentialsFile   string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	RunTTL            time.Duration
	ProfilesFile      string
	LogLevel          string
	MaintenanceMaxAge time.Duration
	Sheets            SheetDefaults
	Pipeline          Pipeline
	Profiles          *Profiles
	EnvFileLoaded     bool
}

// Load reads .env (if present) and the process environment.
func Load() (*AppConfig, error) {
	envLoaded := godotenv.Load() == nil

	cfg := &AppConfig{
		Port:              getEnv("PORT", "8080"),
		AllowedOrigins:    splitList(getEnv("ALLOWED_ORIGINS", "*")),
		OutputDir:         getEnv("PDF_OUTPUT_DIR", "generated_invoices"),
		CredentialsFile:   getEnv("GOOGLE_APPLICATION_CREDENTIALS", "service-account.json"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		ProfilesFile:      os.Getenv("CUSTOMER_PROFILES_FILE"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		MaintenanceMaxAge: 24 * time.Hour,
		Sheets: SheetDefaults{
			InvoiceSheetID: os.Getenv("INVOICE_SHEET_ID"),
			InvoiceRange:   getEnv("INVOICE_RANGE", "store_id_level_matched!A:Z"),
			MasterSheetID:  os.Getenv("MASTER_SHEET_ID"),
			MasterRange:    getEnv("MASTER_RANGE", "PD Store Level!A:K"),
			MaxPDFs:        -1,
		},
		Pipeline: DefaultPipeline(),
	}
	cfg.EnvFileLoaded = envLoaded

	var err error
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.Sheets.MaxPDFs, err = getInt("MAX_PDFS", -1); err != nil {
		return nil, err
	}
	if cfg.RunTTL, err = getDuration("RUN_TTL", time.Hour); err != nil {
		return nil, err
	}

	if cfg.ProfilesFile != "" {
		if cfg.Profiles, err = LoadProfiles(cfg.ProfilesFile); err != nil {
			return nil, err
		}
	} else {
		cfg.Profiles = &Profiles{}
	}
	return cfg, nil
}

// Resolve layers defaults, the named customer profile, then per-request overrides.
func (c *AppConfig) Resolve(customerID string, req *Overrides) (Pipeline, SheetDefaults, error) {
	pipe := c.Pipeline
	sheets := c.Sheets
	if p, ok := c.Profiles.Lookup(customerID); ok {
		sheets = p.Sheets.applyTo(sheets)
		var err error
		if pipe, err = pipe.Apply(p.Pipeline); err != nil {
			return Pipeline{}, SheetDefaults{}, fmt.Errorf("customer %q: %w", customerID, err)
		}
	}
	pipe, err := pipe.Apply(req)
	if err != nil {
		return Pipeline{}, SheetDefaults{}, err
	}
	return pipe, sheets, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, v)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a duration", ErrInvalidConfig, key, v)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
