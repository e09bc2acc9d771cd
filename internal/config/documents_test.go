package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDocumentSettingsDefaults(t *testing.T) {
	holder, err := loadDocumentSettings(zap.NewNop(), t.TempDir())
	require.NoError(t, err)

	got := holder.Get()
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, 30, got.PaymentTermsDays)
	assert.Equal(t, "INV", got.Prefixes.Invoice)
	assert.True(t, got.TaxRate().IsZero())
}

func TestLoadDocumentSettingsFromFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`documents:
  currency: CAD
  defaultTaxRate: "13"
  paymentTermsDays: 15
  defaultHourlyRate: "95.50"
  prefixes:
    estimate: Q
    changeOrder: CHG
    invoice: BILL
    serviceCall: CALL
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "documents.yml"), content, 0o600))

	holder, err := loadDocumentSettings(zap.NewNop(), dir)
	require.NoError(t, err)

	got := holder.Get()
	assert.Equal(t, "CAD", got.Currency)
	assert.Equal(t, 15, got.PaymentTermsDays)
	assert.Equal(t, "13", got.TaxRate().String())
	assert.Equal(t, "95.5", got.HourlyRate().String())
	assert.Equal(t, "BILL", got.Prefixes.Invoice)
	assert.Equal(t, "CALL", got.Prefixes.ServiceCall)
}

func TestValidateDocumentSettingsRejectsNegativeTax(t *testing.T) {
	s := DefaultDocumentSettings()
	s.DefaultTaxRate = "-2"
	assert.Error(t, validateDocumentSettings(s))

	s = DefaultDocumentSettings()
	s.Prefixes.Invoice = ""
	assert.Error(t, validateDocumentSettings(s))
}
