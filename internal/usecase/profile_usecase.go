package usecase

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"grocery/internal/domain/model"
	repo "grocery/internal/repository"
)

var mobilePattern = regexp.MustCompile(`^\+?[0-9\- ]{6,20}$`)

type ProfileUsecase struct {
	profiles repo.ProfileRepository
	clock    Clock
}

func NewProfileUsecase(profiles repo.ProfileRepository) *ProfileUsecase {
	return &ProfileUsecase{profiles: profiles, clock: systemClock}
}

type ProfileDTO struct {
	UserID    int64  `json:"user_id"`
	FullName  string `json:"full_name"`
	DOB       string `json:"dob"`
	Gender    string `json:"gender"`
	Mobile    string `json:"mobile"`
	Address   string `json:"address"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type ProfileUpdateRequest struct {
	FullName string `json:"full_name"`
	DOB      string `json:"dob"`
	Gender   string `json:"gender"`
	Mobile   string `json:"mobile"`
	Address  string `json:"address"`
}

// 無ければ空のプロフィールを返す
func (u *ProfileUsecase) Get(ctx context.Context, userID int64) (ProfileDTO, error) {
	if userID <= 0 {
		return ProfileDTO{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	p, err := u.profiles.FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return ProfileDTO{UserID: userID}, nil
	}
	if err != nil {
		return ProfileDTO{}, dbError(err)
	}
	return toProfileDTO(p), nil
}

func (u *ProfileUsecase) Update(ctx context.Context, userID int64, req ProfileUpdateRequest) (ProfileDTO, error) {
	if userID <= 0 {
		return ProfileDTO{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	fullName := strings.TrimSpace(req.FullName)
	if len(fullName) > 150 {
		return ProfileDTO{}, NewHTTPError(http.StatusBadRequest, "full_name too long")
	}
	gender := model.Gender(strings.ToLower(strings.TrimSpace(req.Gender)))
	if !gender.Valid() {
		return ProfileDTO{}, NewHTTPError(http.StatusBadRequest, "invalid gender")
	}
	mobile := strings.TrimSpace(req.Mobile)
	if mobile != "" && !mobilePattern.MatchString(mobile) {
		return ProfileDTO{}, NewHTTPError(http.StatusBadRequest, "invalid mobile")
	}

	var dob *time.Time
	if s := strings.TrimSpace(req.DOB); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return ProfileDTO{}, NewHTTPError(http.StatusBadRequest, "invalid dob")
		}
		//未来日は不可
		if t.After(u.clock.Now()) {
			return ProfileDTO{}, NewHTTPError(http.StatusBadRequest, "invalid dob")
		}
		dob = &t
	}

	now := u.clock.Now()
	saved, err := u.profiles.Save(ctx, model.Profile{
		UserID:    userID,
		FullName:  fullName,
		DOB:       dob,
		Gender:    gender,
		Mobile:    mobile,
		Address:   strings.TrimSpace(req.Address),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return ProfileDTO{}, dbError(err)
	}
	return toProfileDTO(saved), nil
}

func toProfileDTO(p model.Profile) ProfileDTO {
	dto := ProfileDTO{
		UserID:   p.UserID,
		FullName: p.FullName,
		Gender:   string(p.Gender),
		Mobile:   p.Mobile,
		Address:  p.Address,
	}
	if p.DOB != nil {
		dto.DOB = p.DOB.Format("2006-01-02")
	}
	if !p.UpdatedAt.IsZero() {
		dto.UpdatedAt = p.UpdatedAt.Format(time.RFC3339)
	}
	return dto
}
