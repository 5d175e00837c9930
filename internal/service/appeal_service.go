package service

import (
	"context"
	"errors"

	"github.com/iliyamo/library-seat-reservation/internal/model"
	"github.com/iliyamo/library-seat-reservation/internal/repository"
)

// AppealStore is the slice of the appeal repository the service needs.
type AppealStore interface {
	Create(ctx context.Context, a *model.Appeal) error
	GetByID(ctx context.Context, id uint64) (*model.Appeal, error)
	Review(ctx context.Context, id uint64, status, reply string) error
	List(ctx context.Context, status string) ([]model.Appeal, error)
}

// AppealService handles objections to violation verdicts.  Approving an
// appeal records the verdict and notifies the user; it does not reverse the
// credit penalty, compensation stays a manual administrative step.
type AppealService struct {
	appeals AppealStore
	resvs   ReservationStore
	notify  Notifier
}

func NewAppealService(appeals AppealStore, resvs ReservationStore, notify Notifier) *AppealService {
	return &AppealService{appeals: appeals, resvs: resvs, notify: notify}
}

// Create files an appeal against one of the user's violation verdicts.
func (s *AppealService) Create(ctx context.Context, userID, reservationID uint64, reason string) (*model.Appeal, error) {
	res, err := s.resvs.GetByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return nil, reject(CodeNotFound, ReasonReservationGone, "reservation not found")
		}
		return nil, err
	}
	if res.UserID != userID {
		return nil, reject(CodeNotFound, ReasonReservationGone, "reservation not found")
	}
	if res.Status != model.StatusViolation {
		return nil, rejectf(CodePreconditionFailed, ReasonWrongStatus,
			"appeals apply to violations, reservation is %s", res.Status)
	}
	appeal := &model.Appeal{
		ReservationID: reservationID,
		UserID:        userID,
		Reason:        reason,
	}
	if err := s.appeals.Create(ctx, appeal); err != nil {
		return nil, err
	}
	return appeal, nil
}

// Review records the administrator's verdict on a pending appeal.
func (s *AppealService) Review(ctx context.Context, appealID uint64, approve bool, reply string) (*model.Appeal, error) {
	appeal, err := s.appeals.GetByID(ctx, appealID)
	if err != nil {
		if errors.Is(err, repository.ErrAppealNotFound) {
			return nil, reject(CodeNotFound, "appeal_not_found", "appeal not found")
		}
		return nil, err
	}
	if appeal.Status != model.AppealPending {
		return nil, rejectf(CodePreconditionFailed, ReasonAppealNotPending, "appeal already %s", appeal.Status)
	}

	status := model.AppealRejected
	severity := model.SeverityInfo
	title := "Appeal rejected"
	if approve {
		status = model.AppealApproved
		severity = model.SeveritySuccess
		title = "Appeal approved"
	}
	if err := s.appeals.Review(ctx, appealID, status, reply); err != nil {
		return nil, err
	}
	appeal.Status = status
	appeal.Reply = reply
	s.notify.Notify(ctx, appeal.UserID, severity, title, reply)
	return appeal, nil
}

// List returns appeals for administrators, optionally filtered by status.
func (s *AppealService) List(ctx context.Context, status string) ([]model.Appeal, error) {
	if status != "" && status != model.AppealPending && status != model.AppealApproved && status != model.AppealRejected {
		return nil, rejectf(CodeInvariant, ReasonWrongStatus, "unknown appeal status %s", status)
	}
	return s.appeals.List(ctx, status)
}
