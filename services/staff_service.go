package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/kendall-kelly/studio-ledger-api/models"
	"gorm.io/gorm"
)

// StaffService resolves signed-in Auth0 users to studio staff
type StaffService struct {
	db       *gorm.DB
	userInfo UserInfoProvider
}

// NewStaffService creates a staff service. userInfo may be nil, in which case
// staff records are never linked automatically.
func NewStaffService(db *gorm.DB, userInfo UserInfoProvider) *StaffService {
	return &StaffService{db: db, userInfo: userInfo}
}

// FindByAuth0ID returns the active staff member linked to auth0ID
func (s *StaffService) FindByAuth0ID(ctx context.Context, auth0ID string) (*models.Staff, error) {
	var staff models.Staff
	err := s.db.WithContext(ctx).Where("auth0_id = ? AND is_active = ?", auth0ID, true).First(&staff).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(CodeStaffNotFound, "no staff profile is linked to this account")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load staff: %w", err)
	}
	return &staff, nil
}

// LinkCurrentStaff returns the staff member for auth0ID. On first sign-in it
// looks up the account's email at Auth0 and links the unclaimed staff record
// an admin created for that email.
func (s *StaffService) LinkCurrentStaff(ctx context.Context, auth0ID, accessToken string) (*models.Staff, error) {
	staff, err := s.FindByAuth0ID(ctx, auth0ID)
	if err == nil || !errors.Is(err, ErrNotFound) || s.userInfo == nil {
		return staff, err
	}

	info, err := s.userInfo.GetUserInfo(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	if info.Sub != auth0ID || info.Email == "" {
		return nil, notFoundError(CodeStaffNotFound, "no staff profile is linked to this account")
	}

	var linked models.Staff
	err = withTx(ctx, s.db, func(tx *gorm.DB) error {
		err := tx.Where("LOWER(email) = ? AND auth0_id IS NULL AND is_active = ?", strings.ToLower(info.Email), true).
			First(&linked).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundError(CodeStaffNotFound, "no staff profile exists for %s", info.Email)
		}
		if err != nil {
			return fmt.Errorf("failed to load staff by email: %w", err)
		}
		if err := tx.Model(&linked).Update("auth0_id", auth0ID).Error; err != nil {
			return fmt.Errorf("failed to link staff: %w", err)
		}
		linked.Auth0ID = &auth0ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[staff] linked staff %d (%s) to Auth0 user %s", linked.ID, linked.Email, auth0ID)
	return &linked, nil
}
