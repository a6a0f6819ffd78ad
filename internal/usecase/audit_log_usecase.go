package usecase

import (
	"context"
	"net/http"
	"strings"

	"grocery/internal/domain/model"
	repo "grocery/internal/repository"
)

type AuditLogUsecase struct {
	logs repo.AuditLogRepository
}

func NewAuditLogUsecase(logs repo.AuditLogRepository) *AuditLogUsecase {
	return &AuditLogUsecase{logs: logs}
}

type AuditLogListInput struct {
	Page         int
	Limit        int
	ActorUserID  int64
	Action       string
	ResourceType string
	ResourceID   int64
	From         string
	To           string
}

type AuditLogListOutput struct {
	Items []model.AuditLog `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

func (u *AuditLogUsecase) List(ctx context.Context, in AuditLogListInput) (AuditLogListOutput, error) {
	if in.Page == 0 {
		in.Page = 1
	}
	if in.Limit == 0 {
		in.Limit = 50
	}
	if in.Page < 1 {
		return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 200 {
		return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if in.ActorUserID < 0 || in.ResourceID < 0 {
		return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	q := repo.AuditLogQuery{
		Page:         in.Page,
		Limit:        in.Limit,
		ActorUserID:  in.ActorUserID,
		Action:       model.AuditAction(strings.ToUpper(strings.TrimSpace(in.Action))),
		ResourceType: model.AuditResourceType(strings.ToLower(strings.TrimSpace(in.ResourceType))),
		ResourceID:   in.ResourceID,
	}
	if q.Action != "" && !q.Action.Valid() {
		return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid action")
	}
	if q.ResourceType != "" && !q.ResourceType.Valid() {
		return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid resource_type")
	}

	var ok bool
	if in.From != "" {
		if q.From, ok = parseDateTimeRFC3339(in.From); !ok {
			return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid from")
		}
	}
	if in.To != "" {
		if q.To, ok = parseDateTimeRFC3339(in.To); !ok {
			return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid to")
		}
	}

	items, total, err := u.logs.Search(ctx, q)
	if err != nil {
		return AuditLogListOutput{}, dbError(err)
	}
	return AuditLogListOutput{Items: items, Total: total, Page: in.Page, Limit: in.Limit}, nil
}
