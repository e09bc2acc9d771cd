package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/fieldbook/internal/audit/domain"
	"github.com/smallbiznis/fieldbook/internal/audit/masking"
	"github.com/smallbiznis/fieldbook/internal/clock"
	obscontext "github.com/smallbiznis/fieldbook/internal/observability/context"
	"github.com/smallbiznis/fieldbook/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// AuditLog records one action. Missing actor fields fall back to the actor
// stored on ctx, then to the system actor. Contact data in metadata is masked.
func (s *Service) AuditLog(ctx context.Context, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error {
	action = strings.TrimSpace(action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}

	entry := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		Action:     action,
		TargetType: orDefault(strings.TrimSpace(targetType), "unknown"),
		TargetID:   trimmed(targetID),
		Metadata:   datatypes.JSONMap(entryMetadata(ctx, metadata)),
		CreatedAt:  s.clock.Now().UTC(),
	}
	entry.ActorType, entry.ActorID = resolveActor(ctx, strings.TrimSpace(actorType), actorID)

	client := obscontext.ClientFromContext(ctx)
	entry.IPAddress = trimmed(&client.IPAddress)
	entry.UserAgent = trimmed(&client.UserAgent)

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		s.log.Warn("failed to write audit log",
			zap.String("action", action),
			zap.String("target_type", entry.TargetType),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidTimeRange
	}
	if err := req.Validate(); err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}

	rows, err := s.repo.Find(ctx, s.db, auditdomain.Filter{
		Action:     req.Action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		ActorType:  req.ActorType,
		Since:      req.StartAt,
		Until:      req.EndAt,
	}, req.Pagination)
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}

	logs, info := pagination.Collect(rows, req.Size(), func(entry *auditdomain.AuditLog) pagination.Cursor {
		return pagination.SeekCursor(int64(entry.ID), entry.CreatedAt)
	})
	return auditdomain.ListAuditLogResponse{PageInfo: info, AuditLogs: logs}, nil
}

// entryMetadata masks caller metadata and stamps the request id.
func entryMetadata(ctx context.Context, metadata map[string]any) map[string]any {
	payload := masking.MaskMetadata(metadata)
	if payload == nil {
		payload = map[string]any{}
	}
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		payload["request_id"] = requestID
	}
	return payload
}

func resolveActor(ctx context.Context, actorType string, actorID *string) (string, *string) {
	if actorType != "" {
		return actorType, trimmed(actorID)
	}
	ctxType, ctxID := obscontext.ActorFromContext(ctx)
	if ctxType == "" {
		return string(auditdomain.ActorTypeSystem), trimmed(actorID)
	}
	if id := trimmed(actorID); id != nil {
		return ctxType, id
	}
	return ctxType, trimmed(&ctxID)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
