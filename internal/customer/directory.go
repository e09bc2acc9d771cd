package customer

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldbook/internal/customer/domain"
	"github.com/smallbiznis/fieldbook/internal/document"
	"github.com/smallbiznis/fieldbook/internal/document/compose"
)

type directory struct {
	svc domain.Service
}

// NewDirectory exposes customer snapshots to document composition.
func NewDirectory(svc domain.Service) compose.CustomerDirectory {
	return &directory{svc: svc}
}

func (d *directory) Snapshot(ctx context.Context, ref snowflake.ID) (document.CustomerSnapshot, error) {
	snapshot, err := d.svc.Snapshot(ctx, ref.String())
	if errors.Is(err, domain.ErrNotFound) {
		return document.CustomerSnapshot{}, compose.ErrCustomerNotFound
	}
	return snapshot, err
}
