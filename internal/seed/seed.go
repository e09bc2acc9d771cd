package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/fieldbook/internal/catalog/domain"
	"github.com/smallbiznis/fieldbook/internal/clock"
	"github.com/smallbiznis/fieldbook/internal/config"
	"github.com/smallbiznis/fieldbook/internal/document/lineitem"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("seed",
	fx.Invoke(func(cfg config.Config, conn *gorm.DB, node *snowflake.Node, clk clock.Clock, log *zap.Logger) error {
		if !cfg.SeedCatalog {
			return nil
		}
		created, err := EnsureStarterCatalog(context.Background(), conn, node, clk.Now())
		if err != nil {
			return err
		}
		log.Info("starter catalog seeded", zap.Int("created", created))
		return nil
	}),
)

type starterItem struct {
	Kind      lineitem.ItemType
	Code      string
	Name      string
	Unit      string
	UnitPrice string
}

// starterCatalog is a small residential price book.
var starterCatalog = []starterItem{
	{lineitem.TypeMaterial, "romex-12-2", "Romex 12/2 NM-B", "ft", "0.85"},
	{lineitem.TypeMaterial, "romex-14-2", "Romex 14/2 NM-B", "ft", "0.65"},
	{lineitem.TypeMaterial, "breaker-20a", "20A single pole breaker", "each", "12.50"},
	{lineitem.TypeMaterial, "gfci-receptacle", "GFCI receptacle 20A", "each", "24.00"},
	{lineitem.TypeMaterial, "emt-3-4", "EMT conduit 3/4in", "ft", "1.10"},
	{lineitem.TypeService, "journeyman-labor", "Journeyman labor", "hour", "75.00"},
	{lineitem.TypeService, "service-call-fee", "Service call fee", "each", "95.00"},
	{lineitem.TypeService, "panel-inspection", "Panel inspection", "each", "150.00"},
}

// EnsureStarterCatalog inserts the starter items whose codes are missing and
// returns how many were created. Existing items are left untouched.
func EnsureStarterCatalog(ctx context.Context, db *gorm.DB, node *snowflake.Node, now time.Time) (int, error) {
	if db == nil {
		return 0, errors.New("seed database handle is required")
	}
	if node == nil {
		return 0, errors.New("seed id generator is required")
	}

	created := 0
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range starterCatalog {
			ok, err := ensureCatalogItemTx(ctx, tx, node, item, now.UTC())
			if err != nil {
				return err
			}
			if ok {
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func ensureCatalogItemTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, item starterItem, now time.Time) (bool, error) {
	var existing catalogdomain.CatalogItem
	err := tx.WithContext(ctx).Where("code = ?", item.Code).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	row := catalogdomain.CatalogItem{
		ID:        node.Generate(),
		Kind:      item.Kind,
		Code:      item.Code,
		Name:      item.Name,
		Unit:      item.Unit,
		UnitPrice: decimal.RequireFromString(item.UnitPrice),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		return false, err
	}
	return true, nil
}
