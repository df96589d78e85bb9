package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/oggyb/talenthub/internal/app"
	"github.com/oggyb/talenthub/internal/contentfilter"
	"github.com/oggyb/talenthub/internal/db"
	svcErr "github.com/oggyb/talenthub/internal/errors"
	"github.com/oggyb/talenthub/internal/metrics"
	"github.com/oggyb/talenthub/internal/notify"
	"github.com/oggyb/talenthub/internal/repository"
	"github.com/oggyb/talenthub/internal/service"
	"github.com/oggyb/talenthub/internal/service/block"
)

// MaxDescriptionLength is counted in characters.
const MaxDescriptionLength = 1000

// ActionSuspend is the structured resolve action that suspends the reported user.
const ActionSuspend = "SUSPEND"

// suspendWords trigger suspension when found in a free-text action.
var suspendWords = []string{"suspend", "eject", "ban"}

var validTypes = map[db.ReportType]struct{}{
	db.ReportMessage: {}, db.ReportProfile: {}, db.ReportProject: {},
	db.ReportAchievement: {}, db.ReportJob: {}, db.ReportUser: {},
}

var validReasons = map[db.ReportReason]struct{}{
	db.ReasonInappropriateContent: {}, db.ReasonHarassment: {}, db.ReasonSpam: {},
	db.ReasonFakeProfile: {}, db.ReasonInappropriateBehavior: {}, db.ReasonOther: {},
}

// Service runs the report lifecycle PENDING -> RESOLVED | DISMISSED.
type Service struct {
	appCtx  *app.AppContext
	users   *repository.UserRepository
	reports *repository.ReportRepository
	blocks  *block.Service
	filter  *contentfilter.Filter
}

func NewReportService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:  appCtx,
		users:   repository.NewUserRepository(appCtx.DB),
		reports: repository.NewReportRepository(appCtx.DB),
		blocks:  block.NewBlockService(appCtx),
		filter:  contentfilter.New(),
	}
}

// CreateInput is what a user submits when reporting content.
type CreateInput struct {
	Type           db.ReportType
	ReportedUserID string
	ContentID      string
	Reason         db.ReportReason
	Description    string
}

// Create files a report in PENDING and emails the admins best-effort.
//
// Behavior:
//   - type and reason must be known values; description is capped at
//     MaxDescriptionLength and whitespace-normalised (masked if objectionable).
//   - A reported user must exist and must not be the reporter.
func (s *Service) Create(ctx context.Context, reporterID string, in CreateInput) (*db.ContentReport, error) {
	reporterID, ok := service.CleanID(reporterID)
	if !ok {
		return nil, svcErr.Unauthorized("Authentication required")
	}

	fields := map[string][]string{}
	if _, ok := validTypes[in.Type]; !ok {
		fields["type"] = append(fields["type"], "type must be one of MESSAGE, PROFILE, PROJECT, ACHIEVEMENT, JOB, USER")
	}
	if _, ok := validReasons[in.Reason]; !ok {
		fields["reason"] = append(fields["reason"], "reason must be one of INAPPROPRIATE_CONTENT, HARASSMENT, SPAM, FAKE_PROFILE, INAPPROPRIATE_BEHAVIOR, OTHER")
	}
	if utf8.RuneCountInString(in.Description) > MaxDescriptionLength {
		fields["description"] = append(fields["description"], fmt.Sprintf("description must be at most %d characters", MaxDescriptionLength))
	}
	if len(fields) > 0 {
		return nil, svcErr.Fields(fields)
	}

	rep := &db.ContentReport{
		ReporterID: reporterID,
		Type:       in.Type,
		Reason:     in.Reason,
		Status:     db.ReportPending,
	}

	if id, ok := service.CleanID(in.ReportedUserID); ok {
		if id == reporterID {
			return nil, svcErr.Validation("You cannot report yourself")
		}
		exists, err := s.users.Exists(ctx, id)
		if err != nil {
			return nil, svcErr.Map(err)
		}
		if !exists {
			return nil, svcErr.NotFound("Reported user not found")
		}
		rep.ReportedUserID = &id
	}
	if id := strings.TrimSpace(in.ContentID); id != "" {
		rep.ContentID = &id
	}
	if d := strings.TrimSpace(in.Description); d != "" {
		metrics.FilterVerdicts.WithLabelValues(string(s.filter.Classify(d)), "report").Inc()
		clean, _ := s.filter.Sanitize(d)
		rep.Description = &clean
	}

	if err := s.reports.Create(ctx, rep); err != nil {
		return nil, svcErr.Map(err)
	}

	metrics.ReportsCreated.WithLabelValues(string(rep.Type)).Inc()
	s.appCtx.Logger.Info("report created", "report_id", rep.ID, "type", rep.Type, "reason", rep.Reason)

	s.notifyAdmins(ctx, rep)
	return rep, nil
}

// ResolveInput carries the reviewer's decision.
type ResolveInput struct {
	ActionTaken string
	// Action is optional; ActionSuspend suspends the reported user.
	Action string
}

// Resolve moves a PENDING report to RESOLVED.
//
// The reported user is suspended in the same transaction when Action is
// SUSPEND or ActionTaken mentions suspend, eject or ban (any case).
// A report that already left PENDING yields a conflict.
func (s *Service) Resolve(ctx context.Context, id, reviewerID string, in ResolveInput) (*db.ContentReport, error) {
	action := strings.TrimSpace(in.ActionTaken)
	if action == "" {
		return nil, svcErr.FieldValidation("actionTaken", "actionTaken is required")
	}
	return s.transition(ctx, id, reviewerID, repository.Transition{
		To:              db.ReportResolved,
		ActionTaken:     &action,
		SuspendReported: ShouldSuspend(in.Action, action),
	})
}

// Dismiss moves a PENDING report to DISMISSED with no account side effect.
func (s *Service) Dismiss(ctx context.Context, id, reviewerID, reason string) (*db.ContentReport, error) {
	t := repository.Transition{To: db.ReportDismissed}
	if r := strings.TrimSpace(reason); r != "" {
		t.ActionTaken = &r
	}
	return s.transition(ctx, id, reviewerID, t)
}

func (s *Service) transition(ctx context.Context, id, reviewerID string, t repository.Transition) (*db.ContentReport, error) {
	id, ok := service.CleanID(id)
	if !ok {
		return nil, svcErr.FieldValidation("id", "report id is required")
	}
	reviewerID, ok = service.CleanID(reviewerID)
	if !ok {
		return nil, svcErr.Unauthorized("Authentication required")
	}
	t.ReviewerID = reviewerID

	rep, suspended, err := s.reports.Transition(ctx, id, t)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, svcErr.NotFound("Report not found")
	case errors.Is(err, repository.ErrNotPending):
		return nil, svcErr.Conflict("Report has already been reviewed")
	case err != nil:
		return nil, svcErr.Map(err)
	}

	metrics.ReportTransitions.WithLabelValues(string(t.To)).Inc()
	if suspended {
		metrics.UsersSuspended.Inc()
		s.appCtx.Logger.Warn("user suspended by report", "report_id", id, "user_id", *rep.ReportedUserID, "reviewer", reviewerID)
	}
	s.appCtx.Logger.Info("report reviewed", "report_id", id, "status", t.To, "reviewer", reviewerID)
	return rep, nil
}

// ShouldSuspend reports whether a resolution suspends the reported user.
func ShouldSuspend(action, actionTaken string) bool {
	if strings.EqualFold(strings.TrimSpace(action), ActionSuspend) {
		return true
	}
	lower := strings.ToLower(actionTaken)
	for _, w := range suspendWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// Pending returns the review queue, oldest first.
func (s *Service) Pending(ctx context.Context) ([]db.ContentReport, error) {
	return orEmpty(s.reports.Pending(ctx))
}

// All returns every report newest first, optionally filtered by status.
func (s *Service) All(ctx context.Context, status string) ([]db.ContentReport, error) {
	var filter *db.ReportStatus
	if status = strings.TrimSpace(status); status != "" {
		st := db.ReportStatus(strings.ToUpper(status))
		switch st {
		case db.ReportPending, db.ReportResolved, db.ReportDismissed:
			filter = &st
		default:
			return nil, svcErr.FieldValidation("status", "status must be one of pending, resolved, dismissed")
		}
	}
	return orEmpty(s.reports.List(ctx, filter))
}

// ForUser returns reports filed against userID, newest first.
func (s *Service) ForUser(ctx context.Context, userID string) ([]db.ContentReport, error) {
	userID, ok := service.CleanID(userID)
	if !ok {
		return nil, svcErr.FieldValidation("userId", "userId is required")
	}
	return orEmpty(s.reports.ForReportedUser(ctx, userID))
}

// Stats backs the moderation dashboard.
type Stats struct {
	PendingReports   int64 `json:"pendingReports"`
	ResolvedReports  int64 `json:"resolvedReports"`
	DismissedReports int64 `json:"dismissedReports"`
	TotalBlocks      int64 `json:"totalBlocks"`
	BlockedUsers     int64 `json:"blockedUsers"`
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	counts, err := s.reports.CountByStatus(ctx)
	if err != nil {
		return Stats{}, svcErr.Map(err)
	}
	bs, err := s.blocks.Stats(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		PendingReports:   counts[db.ReportPending],
		ResolvedReports:  counts[db.ReportResolved],
		DismissedReports: counts[db.ReportDismissed],
		TotalBlocks:      bs.TotalBlocks,
		BlockedUsers:     bs.BlockedUsers,
	}, nil
}

func (s *Service) notifyAdmins(ctx context.Context, rep *db.ContentReport) {
	admins, err := s.users.ByRole(ctx, db.RoleAdmin)
	if err != nil {
		s.appCtx.Logger.Warn("report notification skipped, admin lookup failed", "report_id", rep.ID, "err", err)
		metrics.NotificationFailures.WithLabelValues("report").Inc()
		return
	}
	to := make([]string, 0, len(admins))
	for _, a := range admins {
		to = append(to, a.Email)
	}

	reporter := "Unknown"
	if u, err := s.users.Get(ctx, rep.ReporterID); err == nil {
		reporter = u.Email
	}
	reported := "N/A"
	if rep.ReportedUserID != nil {
		if u, err := s.users.Get(ctx, *rep.ReportedUserID); err == nil {
			reported = u.Email
		}
	}
	description := "No description provided"
	if rep.Description != nil {
		description = *rep.Description
	}
	appURL := ""
	if s.appCtx.Config != nil {
		appURL = s.appCtx.Config.App.URL
	}

	subject := fmt.Sprintf("New Content Report - %s - %s", rep.Type, rep.Reason)
	body := fmt.Sprintf(`A new content report has been submitted:

Report ID: %s
Type: %s
Reason: %s
Reporter: %s
Reported User: %s
Description: %s

Created: %s

Please review this report within 24 hours.

Review at: %s/admin/reports/%s
`, rep.ID, rep.Type, rep.Reason, reporter, reported, description,
		rep.CreatedAt.Format(time.RFC3339), appURL, rep.ID)

	if err := notify.Broadcast(ctx, s.appCtx.Notifier, to, subject, body); err != nil {
		s.appCtx.Logger.Warn("report notification failed", "report_id", rep.ID, "err", err)
		metrics.NotificationFailures.WithLabelValues("report").Inc()
	}
}

func orEmpty(reps []db.ContentReport, err error) ([]db.ContentReport, error) {
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if reps == nil {
		reps = []db.ContentReport{}
	}
	return reps, nil
}
