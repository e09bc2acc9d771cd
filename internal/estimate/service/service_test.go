package service

import (
	"context"
	"testing"
	"time"

	auditdomain "github.com/smallbiznis/fieldbook/internal/audit/domain"
	auditrepo "github.com/smallbiznis/fieldbook/internal/audit/repository"
	auditservice "github.com/smallbiznis/fieldbook/internal/audit/service"
	"github.com/smallbiznis/fieldbook/internal/clock"
	"github.com/smallbiznis/fieldbook/internal/document"
	"github.com/smallbiznis/fieldbook/internal/document/compose/composetest"
	"github.com/smallbiznis/fieldbook/internal/estimate/domain"
	"github.com/smallbiznis/fieldbook/internal/estimate/repository"
	"github.com/smallbiznis/fieldbook/pkg/db/dbtest"
	"github.com/smallbiznis/fieldbook/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc   domain.Service
	db    *gorm.DB
	clock *clock.FakeClock
	audit auditdomain.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := dbtest.Open(t, &domain.Estimate{}, &auditdomain.AuditLog{})
	node := dbtest.Node(t)
	clk := clock.NewFakeClock(time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC))
	audit := auditservice.NewService(auditservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: auditrepo.Provide(),
	})

	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Repo:     repository.Provide(),
		Composer: composetest.New(),
		AuditSvc: audit,
	})
	return fixture{svc: svc, db: db, clock: clk, audit: audit}
}

func createScenario(t *testing.T, f fixture) domain.Estimate {
	t.Helper()
	est, err := f.svc.Create(context.Background(), domain.CreateRequest{Content: domain.Content{
		Title:       "Bakery panel upgrade",
		Items:       composetest.ScenarioItems(),
		CustomerRef: composetest.Ref(composetest.CustomerRef),
	}})
	require.NoError(t, err)
	return est
}

func TestCreateComputesTotalsAndNumber(t *testing.T) {
	f := newFixture(t)
	est := createScenario(t, f)

	assert.Equal(t, "EST-00001", est.Number)
	assert.Equal(t, domain.StatusDraft, est.Status)
	assert.True(t, est.Subtotal.Equal(composetest.Dec("127.5")))
	assert.True(t, est.TaxAmount.Equal(composetest.Dec("10.2")))
	assert.True(t, est.TotalAmount.Equal(composetest.Dec("137.7")))
	assert.Equal(t, "Harbor Bakery", est.Customer.Name)
	assert.EqualValues(t, 1, est.Version)

	stored, err := f.svc.Get(context.Background(), est.ID.String())
	require.NoError(t, err)
	assert.True(t, stored.TotalAmount.Equal(composetest.Dec("137.7")))
	require.Len(t, stored.Items, 2)
	assert.Equal(t, "12/2 Romex", stored.Items[0].Description)

	second := createScenario(t, f)
	assert.Equal(t, "EST-00002", second.Number)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), domain.CreateRequest{})
	assert.ErrorIs(t, err, document.ErrValidation)

	items := composetest.ScenarioItems()
	items[1].Quantity = composetest.Dec("-1")
	_, err = f.svc.Create(context.Background(), domain.CreateRequest{Content: domain.Content{Title: "x", Items: items}})
	vErr := document.AsValidation(err)
	require.NotNil(t, vErr)
	assert.Equal(t, "items[1].quantity", vErr.Fields[0].Field)
}

func TestUpdateRecomputesWhileDraft(t *testing.T) {
	f := newFixture(t)
	est := createScenario(t, f)

	f.clock.Advance(time.Hour)
	version := est.Version
	updated, err := f.svc.Update(context.Background(), domain.UpdateRequest{
		ID:      est.ID.String(),
		Version: &version,
		Content: domain.Content{
			Title:   "Bakery panel upgrade",
			Items:   composetest.ScenarioItems()[1:],
			TaxRate: composetest.DecPtr("0"),
		},
	})
	require.NoError(t, err)
	assert.True(t, updated.TotalAmount.Equal(composetest.Dec("100")))
	assert.EqualValues(t, 2, updated.Version)
	assert.Equal(t, "Harbor Bakery", updated.Customer.Name)
	assert.Equal(t, est.Number, updated.Number)

	_, err = f.svc.Update(context.Background(), domain.UpdateRequest{
		ID:      est.ID.String(),
		Version: &version,
		Content: domain.Content{Title: "stale"},
	})
	assert.ErrorIs(t, err, document.ErrVersionConflict)
}

func TestUpdateKeepsTaxRateWhenOmitted(t *testing.T) {
	f := newFixture(t)
	est := createScenario(t, f)

	updated, err := f.svc.Update(context.Background(), domain.UpdateRequest{
		ID:      est.ID.String(),
		Content: domain.Content{Title: "Bakery", Items: composetest.ScenarioItems()},
	})
	require.NoError(t, err)
	assert.True(t, updated.TaxRate.Equal(composetest.Dec("8")))
	assert.True(t, updated.TotalAmount.Equal(composetest.Dec("137.7")))
}

func TestUpdateLockedOutsideDraft(t *testing.T) {
	f := newFixture(t)
	est := createScenario(t, f)

	_, err := f.svc.Transition(context.Background(), domain.TransitionRequest{ID: est.ID.String(), Status: "sent"})
	require.NoError(t, err)

	_, err = f.svc.Update(context.Background(), domain.UpdateRequest{
		ID:      est.ID.String(),
		Content: domain.Content{Title: "late edit", Items: composetest.ScenarioItems()},
	})
	var locked *document.DocumentLockedError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, "sent", locked.Status)

	stored, err := f.svc.Get(context.Background(), est.ID.String())
	require.NoError(t, err)
	assert.True(t, stored.TotalAmount.Equal(composetest.Dec("137.7")))
}

func TestTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	est := createScenario(t, f)

	_, err := f.svc.Transition(ctx, domain.TransitionRequest{ID: est.ID.String(), Status: "approved"})
	assert.ErrorIs(t, err, document.ErrInvalidTransition)

	sent, err := f.svc.Transition(ctx, domain.TransitionRequest{ID: est.ID.String(), Status: "sent"})
	require.NoError(t, err)
	require.NotNil(t, sent.SentAt)

	approved, err := f.svc.Transition(ctx, domain.TransitionRequest{ID: est.ID.String(), Status: "APPROVED"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedAt)

	_, err = f.svc.Transition(ctx, domain.TransitionRequest{ID: est.ID.String(), Status: "rejected"})
	var invalid *document.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "approved", invalid.From)

	_, err = f.svc.Transition(ctx, domain.TransitionRequest{ID: est.ID.String(), Status: "archived"})
	assert.ErrorIs(t, err, document.ErrValidation)

	logs, err := f.audit.List(ctx, auditdomain.ListAuditLogRequest{Action: "estimate.status_changed"})
	require.NoError(t, err)
	assert.Len(t, logs.AuditLogs, 2)
}

func TestGetAndListErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, "nope")
	assert.ErrorIs(t, err, document.ErrInvalidID)
	_, err = f.svc.Get(ctx, "123")
	assert.ErrorIs(t, err, document.ErrNotFound)

	_, err = f.svc.List(ctx, domain.ListRequest{Status: "archived"})
	assert.ErrorIs(t, err, document.ErrValidation)
}

func TestListFiltersAndPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		est := createScenario(t, f)
		ids = append(ids, est.ID.String())
		f.clock.Advance(time.Minute)
	}
	_, err := f.svc.Transition(ctx, domain.TransitionRequest{ID: ids[0], Status: "sent"})
	require.NoError(t, err)

	page, err := f.svc.List(ctx, domain.ListRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, page.Estimates, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, ids[2], page.Estimates[0].ID.String())

	next, err := f.svc.List(ctx, domain.ListRequest{Pagination: pagination.Pagination{PageSize: 2, PageToken: page.NextPageToken}})
	require.NoError(t, err)
	require.Len(t, next.Estimates, 1)
	assert.Equal(t, ids[0], next.Estimates[0].ID.String())

	sent, err := f.svc.List(ctx, domain.ListRequest{Status: "sent"})
	require.NoError(t, err)
	require.Len(t, sent.Estimates, 1)

	byCustomer, err := f.svc.List(ctx, domain.ListRequest{CustomerRef: composetest.CustomerRef.String()})
	require.NoError(t, err)
	assert.Len(t, byCustomer.Estimates, 3)
}

func TestLifecycleTable(t *testing.T) {
	allowed := map[[2]domain.Status]bool{
		{domain.StatusDraft, domain.StatusSent}:    true,
		{domain.StatusSent, domain.StatusApproved}: true,
		{domain.StatusSent, domain.StatusRejected}: true,
	}
	statuses := domain.Lifecycle.Statuses()
	require.Len(t, statuses, 4)
	for _, from := range statuses {
		for _, to := range statuses {
			err := domain.Lifecycle.Transition(from, to)
			if allowed[[2]domain.Status{from, to}] {
				assert.NoError(t, err, "%s -> %s", from, to)
			} else {
				assert.ErrorIs(t, err, document.ErrInvalidTransition, "%s -> %s", from, to)
			}
		}
	}
}
