package document

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// NextSequence returns the next per-table document sequence. It must run in
// the same transaction as the insert; the unique index on sequence rejects races.
func NextSequence(ctx context.Context, tx *gorm.DB, table string) (int64, error) {
	var next int64
	err := tx.WithContext(ctx).Raw(
		fmt.Sprintf(`SELECT COALESCE(MAX(sequence), 0) + 1 FROM %s`, table),
	).Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}

// FormatNumber renders the human number, e.g. INV-00042.
func FormatNumber(prefix string, sequence int64) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return fmt.Sprintf("%05d", sequence)
	}
	return fmt.Sprintf("%s-%05d", prefix, sequence)
}
