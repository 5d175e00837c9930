package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/library-seat-reservation/internal/model"
	"github.com/iliyamo/library-seat-reservation/internal/repository"
)

type fakeAppeals struct {
	nextID  uint64
	appeals map[uint64]*model.Appeal
}

func newFakeAppeals() *fakeAppeals {
	return &fakeAppeals{appeals: map[uint64]*model.Appeal{}}
}

func (f *fakeAppeals) Create(ctx context.Context, a *model.Appeal) error {
	f.nextID++
	a.ID = f.nextID
	a.Status = model.AppealPending
	cp := *a
	f.appeals[a.ID] = &cp
	return nil
}

func (f *fakeAppeals) GetByID(ctx context.Context, id uint64) (*model.Appeal, error) {
	a, ok := f.appeals[id]
	if !ok {
		return nil, repository.ErrAppealNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAppeals) Review(ctx context.Context, id uint64, status, reply string) error {
	a, ok := f.appeals[id]
	if !ok {
		return repository.ErrAppealNotFound
	}
	a.Status = status
	a.Reply = reply
	return nil
}

func (f *fakeAppeals) List(ctx context.Context, status string) ([]model.Appeal, error) {
	var out []model.Appeal
	for _, a := range f.appeals {
		if status == "" || a.Status == status {
			out = append(out, *a)
		}
	}
	return out, nil
}

type appealEnv struct {
	d       *fakeData
	appeals *fakeAppeals
	notes   *fakeNotifier
	svc     *AppealService
}

func newAppealEnv(t *testing.T) *appealEnv {
	t.Helper()
	d := newFakeData()
	ap := newFakeAppeals()
	notes := &fakeNotifier{}
	return &appealEnv{d: d, appeals: ap, notes: notes, svc: NewAppealService(ap, fakeResvs{d}, notes)}
}

func (e *appealEnv) addViolation(t *testing.T) (uint64, uint64) {
	t.Helper()
	seat := e.d.addSeat("A-01", "A")
	user := e.d.addUser(90)
	start, end, _ := model.SlotWindow(baseTime, model.SlotMorning)
	e.d.mu.Lock()
	id := e.d.id()
	e.d.resvs[id] = &model.Reservation{
		ID: id, UserID: user, SeatID: seat.ID, SeatNo: seat.SeatNo,
		Slot: model.SlotMorning, StartTime: start, EndTime: end,
		Status: model.StatusViolation,
	}
	e.d.mu.Unlock()
	return user, id
}

func TestAppealCreateRequiresViolation(t *testing.T) {
	env := newAppealEnv(t)
	user, resID := env.addViolation(t)
	env.d.resvs[resID].Status = model.StatusCompleted

	_, err := env.svc.Create(context.Background(), user, resID, "the room sensor was broken")
	requireRejection(t, err, CodePreconditionFailed, ReasonWrongStatus)
}

func TestAppealCreateHidesForeignReservation(t *testing.T) {
	env := newAppealEnv(t)
	_, resID := env.addViolation(t)
	stranger := env.d.addUser(100)

	_, err := env.svc.Create(context.Background(), stranger, resID, "this is not my violation")
	requireRejection(t, err, CodeNotFound, ReasonReservationGone)
}

func TestAppealLifecycle(t *testing.T) {
	env := newAppealEnv(t)
	user, resID := env.addViolation(t)

	appeal, err := env.svc.Create(context.Background(), user, resID, "I was at the seat the whole time")
	require.NoError(t, err)
	assert.Equal(t, model.AppealPending, appeal.Status)

	reviewed, err := env.svc.Review(context.Background(), appeal.ID, true, "Verified against the door log.")
	require.NoError(t, err)
	assert.Equal(t, model.AppealApproved, reviewed.Status)
	assert.Equal(t, "Verified against the door log.", reviewed.Reply)
	assert.Equal(t, 1, env.notes.count(user, "Appeal approved"))

	// Credit compensation stays manual.
	assert.Equal(t, 90, env.d.credits[user])

	// A settled appeal cannot be reviewed again.
	_, err = env.svc.Review(context.Background(), appeal.ID, false, "changed my mind")
	requireRejection(t, err, CodePreconditionFailed, ReasonAppealNotPending)
}

func TestAppealReviewRejection(t *testing.T) {
	env := newAppealEnv(t)
	user, resID := env.addViolation(t)

	appeal, err := env.svc.Create(context.Background(), user, resID, "I only stepped out briefly")
	require.NoError(t, err)

	reviewed, err := env.svc.Review(context.Background(), appeal.ID, false, "Absence exceeded the allowance.")
	require.NoError(t, err)
	assert.Equal(t, model.AppealRejected, reviewed.Status)
	assert.Equal(t, 1, env.notes.count(user, "Appeal rejected"))
}

func TestAppealListValidatesStatusFilter(t *testing.T) {
	env := newAppealEnv(t)
	user, resID := env.addViolation(t)
	_, err := env.svc.Create(context.Background(), user, resID, "sensor glitch during the morning slot")
	require.NoError(t, err)

	pending, err := env.svc.List(context.Background(), model.AppealPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	all, err := env.svc.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = env.svc.List(context.Background(), "escalated")
	requireRejection(t, err, CodeInvariant, ReasonWrongStatus)
}

func TestAppealReviewUnknownID(t *testing.T) {
	env := newAppealEnv(t)
	_, err := env.svc.Review(context.Background(), 42, true, "no such appeal")
	requireRejection(t, err, CodeNotFound, "appeal_not_found")
}
