package activity

import (
	"context"

	"go.uber.org/zap"

	domainActivity "emi-device-manager/internal/domain/activity"
	domainUser "emi-device-manager/internal/domain/user"
	"emi-device-manager/internal/logger"
	"emi-device-manager/internal/policy"
	appErrors "emi-device-manager/pkg/errors"
	"emi-device-manager/pkg/utils"
)

// Service implements the append-only activity audit log.
type Service struct {
	repo domainActivity.Repository
}

func NewService(repo domainActivity.Repository) *Service {
	return &Service{repo: repo}
}

// Record appends an audit entry. A failed write is logged and swallowed:
// auditing never blocks the primary operation.
func (s *Service) Record(ctx context.Context, entry *domainActivity.Log) {
	if meta, ok := MetaFromContext(ctx); ok {
		if entry.IPAddress == nil && meta.IPAddress != "" {
			entry.IPAddress = &meta.IPAddress
		}
		if entry.UserAgent == nil && meta.UserAgent != "" {
			entry.UserAgent = &meta.UserAgent
		}
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		logger.Error("Failed to write activity log",
			zap.String("action", string(entry.Action)),
			zap.String("performed_by", entry.PerformedBy.String()),
			zap.Error(err),
		)
	}
}

// List returns a page of audit entries. Shop owners are always scoped to
// their own shop regardless of the requested filter.
func (s *Service) List(ctx context.Context, caller policy.Caller, req *ListRequest) (*ListResponse, error) {
	if err := policy.Decide(caller, policy.ActivityView, nil); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeValidation, "Invalid input", err)
	}

	page, limit := utils.ClampPage(req.Page, req.Limit)

	filter := &domainActivity.Filter{
		ShopID:    req.ShopID,
		UserID:    req.UserID,
		DeviceID:  req.DeviceID,
		Action:    req.Action,
		Category:  req.Category,
		Severity:  req.Severity,
		Page:      page,
		PageSize:  limit,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	if caller.Role != domainUser.RoleSuperAdmin {
		filter.ShopID = caller.ShopID
	}

	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]LogResponse, len(logs))
	for i, l := range logs {
		responses[i] = ToLogResponse(l)
	}

	return &ListResponse{
		Logs:       responses,
		Pagination: utils.NewPagination(page, limit, total),
	}, nil
}
