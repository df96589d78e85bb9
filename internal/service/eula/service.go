package eula

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/oggyb/talenthub/internal/app"
	"github.com/oggyb/talenthub/internal/db"
	svcErr "github.com/oggyb/talenthub/internal/errors"
	"github.com/oggyb/talenthub/internal/metrics"
	"github.com/oggyb/talenthub/internal/repository"
	"github.com/oggyb/talenthub/internal/service"
)

// Service gates sensitive actions on acceptance of the current EULA.
type Service struct {
	appCtx *app.AppContext
	eulas  *repository.EulaRepository
	users  *repository.UserRepository
}

func NewEulaService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		eulas:  repository.NewEulaRepository(appCtx.DB),
		users:  repository.NewUserRepository(appCtx.DB),
	}
}

// Current returns the highest active version.
//
// Exactly one version should be active. If several are, the highest wins,
// a warning is logged and the eula_active_versions gauge shows the count.
func (s *Service) Current(ctx context.Context) (*db.EulaVersion, error) {
	active, err := s.eulas.Active(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	metrics.EulaActiveVersions.Set(float64(len(active)))

	if len(active) == 0 {
		return nil, svcErr.NotFound("No active EULA found")
	}
	if len(active) > 1 {
		versions := make([]int, len(active))
		for i, v := range active {
			versions[i] = v.Version
		}
		s.appCtx.Logger.Warn("multiple active EULA versions", "versions", versions, "serving", active[0].Version)
	}
	return &active[0], nil
}

// Acceptance is the result of Accept.
type Acceptance struct {
	Record  *db.UserEulaAcceptance
	Version int
	// Created is false when the user had already accepted this version.
	Created bool
}

// Accept records userID's acceptance of an active version. Repeat calls
// are no-ops returning the original record.
func (s *Service) Accept(ctx context.Context, userID string, version int, ip string) (*Acceptance, error) {
	userID, ok := service.CleanID(userID)
	if !ok {
		return nil, svcErr.Unauthorized("Authentication required")
	}
	if version <= 0 {
		return nil, svcErr.FieldValidation("version", "version must be a positive integer")
	}

	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if !exists {
		return nil, svcErr.NotFound("User not found")
	}

	v, err := s.eulas.ActiveByVersion(ctx, version)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("EULA version not found or not active")
	}
	if err != nil {
		return nil, svcErr.Map(err)
	}

	var ipPtr *string
	if ip = strings.TrimSpace(ip); ip != "" {
		ipPtr = &ip
	}

	rec, created, err := s.eulas.Accept(ctx, userID, v.ID, ipPtr)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if created {
		s.appCtx.Logger.Info("eula accepted", "user_id", userID, "version", v.Version)
	}
	return &Acceptance{Record: rec, Version: v.Version, Created: created}, nil
}

// HasAccepted reports whether userID accepted the current version.
// With no active version nobody has accepted.
func (s *Service) HasAccepted(ctx context.Context, userID string) (bool, error) {
	userID, ok := service.CleanID(userID)
	if !ok {
		return false, nil
	}
	cur, err := s.Current(ctx)
	if svcErr.IsKind(err, svcErr.KindNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	ok, err = s.eulas.HasAccepted(ctx, userID, cur.ID)
	if err != nil {
		return false, svcErr.Map(err)
	}
	return ok, nil
}

// Publish makes a new version the single active one. Existing acceptances
// stay recorded but no longer satisfy HasAccepted.
func (s *Service) Publish(ctx context.Context, version int, content string) (*db.EulaVersion, error) {
	fields := map[string][]string{}
	if version <= 0 {
		fields["version"] = []string{"version must be a positive integer"}
	}
	content = strings.TrimSpace(content)
	if content == "" {
		fields["content"] = []string{"content is required"}
	}
	if len(fields) > 0 {
		return nil, svcErr.Fields(fields)
	}

	v, err := s.eulas.Publish(ctx, version, content)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, svcErr.Conflict(fmt.Sprintf("EULA version %d already exists", version))
	}
	if err != nil {
		return nil, svcErr.Map(err)
	}
	metrics.EulaActiveVersions.Set(1)
	s.appCtx.Logger.Info("eula published", "version", version)
	return v, nil
}
