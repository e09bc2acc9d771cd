package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// DocumentSettings are the business defaults applied when documents are created.
type DocumentSettings struct {
	Currency          string         `mapstructure:"currency"`
	DefaultTaxRate    string         `mapstructure:"defaultTaxRate"`
	PaymentTermsDays  int            `mapstructure:"paymentTermsDays"`
	DefaultHourlyRate string         `mapstructure:"defaultHourlyRate"`
	Prefixes          NumberPrefixes `mapstructure:"prefixes"`
	Company           CompanyProfile `mapstructure:"company"`
}

type NumberPrefixes struct {
	Estimate    string `mapstructure:"estimate"`
	ChangeOrder string `mapstructure:"changeOrder"`
	Invoice     string `mapstructure:"invoice"`
	ServiceCall string `mapstructure:"serviceCall"`
}

// CompanyProfile is printed on rendered documents.
type CompanyProfile struct {
	Name    string `mapstructure:"name"`
	Address string `mapstructure:"address"`
	Phone   string `mapstructure:"phone"`
	Email   string `mapstructure:"email"`
}

func DefaultDocumentSettings() DocumentSettings {
	return DocumentSettings{
		Currency:          "USD",
		DefaultTaxRate:    "0",
		PaymentTermsDays:  30,
		DefaultHourlyRate: "0",
		Prefixes: NumberPrefixes{
			Estimate:    "EST",
			ChangeOrder: "CO",
			Invoice:     "INV",
			ServiceCall: "SC",
		},
		Company: CompanyProfile{Name: "Fieldbook Electric"},
	}
}

// TaxRate returns the default tax rate. Settings are validated on load.
func (s DocumentSettings) TaxRate() decimal.Decimal {
	return decimal.RequireFromString(s.DefaultTaxRate)
}

func (s DocumentSettings) HourlyRate() decimal.Decimal {
	return decimal.RequireFromString(s.DefaultHourlyRate)
}

type DocumentSettingsHolder struct {
	current atomic.Value // holds DocumentSettings
}

// NewStaticDocumentSettings returns a holder that never reloads.
func NewStaticDocumentSettings(settings DocumentSettings) *DocumentSettingsHolder {
	holder := &DocumentSettingsHolder{}
	holder.current.Store(settings)
	return holder
}

func NewDocumentSettingsHolder(log *zap.Logger) (*DocumentSettingsHolder, error) {
	return loadDocumentSettings(log, "/etc/fieldbook", "/var/lib/fieldbook/config", ".")
}

func loadDocumentSettings(log *zap.Logger, paths ...string) (*DocumentSettingsHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.documents")

	v := viper.New()
	v.SetConfigName("documents")
	v.SetConfigType("yml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("FIELDBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultDocumentSettings()
	v.SetDefault("documents.currency", defaults.Currency)
	v.SetDefault("documents.defaultTaxRate", defaults.DefaultTaxRate)
	v.SetDefault("documents.paymentTermsDays", defaults.PaymentTermsDays)
	v.SetDefault("documents.defaultHourlyRate", defaults.DefaultHourlyRate)
	v.SetDefault("documents.prefixes.estimate", defaults.Prefixes.Estimate)
	v.SetDefault("documents.prefixes.changeOrder", defaults.Prefixes.ChangeOrder)
	v.SetDefault("documents.prefixes.invoice", defaults.Prefixes.Invoice)
	v.SetDefault("documents.prefixes.serviceCall", defaults.Prefixes.ServiceCall)
	v.SetDefault("documents.company.name", defaults.Company.Name)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	var settings DocumentSettings
	if err := v.UnmarshalKey("documents", &settings); err != nil {
		return nil, err
	}
	if err := validateDocumentSettings(settings); err != nil {
		return nil, err
	}

	holder := NewStaticDocumentSettings(settings)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated DocumentSettings
		if err := v.UnmarshalKey("documents", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateDocumentSettings(updated); err != nil {
			log.Warn("invalid settings ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("settings reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *DocumentSettingsHolder) Get() DocumentSettings {
	return h.current.Load().(DocumentSettings)
}

func validateDocumentSettings(s DocumentSettings) error {
	rate, err := decimal.NewFromString(strings.TrimSpace(s.DefaultTaxRate))
	if err != nil {
		return fmt.Errorf("documents.defaultTaxRate: %w", err)
	}
	if rate.IsNegative() {
		return errors.New("documents.defaultTaxRate cannot be negative")
	}
	hourly, err := decimal.NewFromString(strings.TrimSpace(s.DefaultHourlyRate))
	if err != nil {
		return fmt.Errorf("documents.defaultHourlyRate: %w", err)
	}
	if hourly.IsNegative() {
		return errors.New("documents.defaultHourlyRate cannot be negative")
	}
	if s.PaymentTermsDays < 0 {
		return errors.New("documents.paymentTermsDays cannot be negative")
	}
	if strings.TrimSpace(s.Currency) == "" {
		return errors.New("documents.currency cannot be empty")
	}
	p := s.Prefixes
	if p.Estimate == "" || p.ChangeOrder == "" || p.Invoice == "" || p.ServiceCall == "" {
		return errors.New("documents.prefixes must all be set")
	}
	return nil
}
