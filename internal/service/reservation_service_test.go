package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/library-seat-reservation/internal/model"
	"github.com/iliyamo/library-seat-reservation/internal/utils"
)

// 07:00 on an arbitrary weekday; the morning slot runs 08:00-12:00.
var baseTime = time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)

type testEnv struct {
	d     *fakeData
	lock  *fakeLock
	notes *fakeNotifier
	clock *fakeClock
	svc   *ReservationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	d := newFakeData()
	lk := &fakeLock{}
	notes := &fakeNotifier{}
	clk := &fakeClock{t: baseTime}
	svc := NewReservationService(fakeTx{}, fakeSeats{d}, fakeResvs{d}, fakeCredit{d},
		fakeOcc{d}, fakePolicy{model.DefaultPolicy()}, lk, notes, clk)
	svc.publish = noopPublish
	return &testEnv{d: d, lock: lk, notes: notes, clock: clk, svc: svc}
}

func requireRejection(t *testing.T, err error, code, reason string) {
	t.Helper()
	var rej *Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, code, rej.Code)
	assert.Equal(t, reason, rej.Reason)
}

func TestReserveCreatesOneRowPerSlot(t *testing.T) {
	env := newTestEnv(t)
	seat := env.d.addSeat("A-01", "A")
	user := env.d.addUser(100)

	created, err := env.svc.Reserve(context.Background(), user, seat.ID, []string{"afternoon", "morning"})
	require.NoError(t, err)
	require.Len(t, created, 2)

	// Daily order regardless of request order.
	assert.Equal(t, model.SlotMorning, created[0].Slot)
	assert.Equal(t, model.SlotAfternoon, created[1].Slot)
	for _, res := range created {
		assert.Equal(t, model.StatusReserved, res.Status)
		require.NotNil(t, res.Deadline)
	}
	wantDeadline := time.Date(2025, 3, 10, 8, 15, 0, 0, time.UTC)
	assert.Equal(t, wantDeadline, *created[0].Deadline)

	assert.Equal(t, 1, env.lock.acquired)
	assert.Equal(t, 1, env.lock.released)
}

func TestReserveInProgressSlotDeadlineRunsFromNow(t *testing.T) {
	env := newTestEnv(t)
	seat := env.d.addSeat("A-01", "A")
	user := env.d.addUser(100)
	env.clock.t = time.Date(2025, 3, 10, 8, 10, 0, 0, time.UTC)

	created, err := env.svc.Reserve(context.Background(), user, seat.ID, []string{"morning"})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, env.clock.t.Add(15*time.Minute), *created[0].Deadline)
}

func TestReserveRejectsWhenLockContended(t *testing.T) {
	env := newTestEnv(t)
	seat := env.d.addSeat("A-01", "A")
	user := env.d.addUser(100)
	env.lock.contended = true

	_, err := env.svc.Reserve(context.Background(), user, seat.ID, []string{"morning"})
	requireRejection(t, err, CodeContention, ReasonSeatLocked)
	assert.Empty(t, env.d.resvs)
}

func TestReserveRejectsLowCredit(t *testing.T) {
	env := newTestEnv(t)
	seat := env.d.addSeat("A-01", "A")
	user := env.d.addUser(59)

	_, err := env.svc.Reserve(context.Background(), user, seat.ID, []string{"morning"})
	requireRejection(t, err, CodePreconditionFailed, ReasonCreditTooLow)
	assert.Empty(t, env.d.resvs)
}

func TestReserveRejectsSeatConflict(t *testing.T) {
	env := newTestEnv(t)
	seat := env.d.addSeat("A-01", "A")
	first := env.d.addUser(100)
	second := env.d.addUser(100)

	_, err := env.svc.Reserve(context.Background(), first, seat.ID, []string{"morning"})
	require.NoError(t, err)

	_, err = env.svc.Reserve(context.Background(), second, seat.ID, []string{"morning"})
	requireRejection(t, err, CodePreconditionFailed, ReasonSeatConflict)
}

func TestReserveRejectsUserConflictAcrossSeats(t *testing.T) {
	env := newTestEnv(t)
	seatA := env.d.addSeat("A-01", "A")
	seatB := env.d.addSeat("A-02", "A")
	user := env.d.addUser(100)

	_, err := env.svc.Reserve(context.Background(), user, seatA.ID, []string{"morning"})
	require.NoError(t, err)

	_, err = env.svc.Reserve(context.Background(), user, seatB.ID, []string{"morning"})
	requireRejection(t, err, CodePreconditionFailed, ReasonUserConflict)
}

func TestReserveRejectsMaintenanceSeat(t *testing.T) {
	env := newTestEnv(t)
	seat := env.d.addSeat("A-01", "A")
	seat.Status = model.SeatMaintenance
	user := env.d.addUser(100)

	_, err := env.svc.Reserve(context.Background(), user, seat.ID, []string{"morning"})
	requireRejection(t, err, CodePreconditionFailed, ReasonSeatUnavailable)
}

func TestReserveRejectsEndedSlot(t *testing.T) {
	env := newTestEnv(t)
	seat := env.d.addSeat("A-01", "A")
	user := env.d.addUser(100)
	env.clock.t = time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC)

	_, err := env.svc.Reserve(context.Background(), user, seat.ID, []string{"morning"})
	requireRejection(t, err, CodePreconditionFailed, ReasonSlotOver)
}

func TestReserveRejectsUnknownSlot(t *testing.T) {
	env := newTestEnv(t)
	seat := env.d.addSeat("A-01", "A")
	user := env.d.addUser(100)

	_, err := env.svc.Reserve(context.Background(), user, seat.ID, []string{"midnight"})
	requireRejection(t, err, CodeInvariant, ReasonSlotInvalid)
}

func reserveMorning(t *testing.T, env *testEnv) (uint64, model.Reservation) {
	t.Helper()
	seat := env.d.addSeat("A-01", "A")
	user := env.d.addUser(100)
	created, err := env.svc.Reserve(context.Background(), user, seat.ID, []string{"morning"})
	require.NoError(t, err)
	return user, created[0]
}

func TestCheckInTooEarly(t *testing.T) {
	env := newTestEnv(t)
	user, res := reserveMorning(t, env)

	// Window opens at 07:45.
	env.clock.t = time.Date(2025, 3, 10, 7, 30, 0, 0, time.UTC)
	_, err := env.svc.CheckIn(context.Background(), user, res.ID, Proof{ScanCode: utils.SeatScanCode("A", "A-01")})
	requireRejection(t, err, CodePreconditionFailed, ReasonCheckInEarly)
}

func TestCheckInTooLate(t *testing.T) {
	env := newTestEnv(t)
	user, res := reserveMorning(t, env)

	env.clock.t = time.Date(2025, 3, 10, 8, 20, 0, 0, time.UTC)
	_, err := env.svc.CheckIn(context.Background(), user, res.ID, Proof{ScanCode: utils.SeatScanCode("A", "A-01")})
	requireRejection(t, err, CodePreconditionFailed, ReasonCheckInLate)
}

func TestCheckInWithScanCode(t *testing.T) {
	env := newTestEnv(t)
	user, res := reserveMorning(t, env)

	env.clock.t = time.Date(2025, 3, 10, 7, 50, 0, 0, time.UTC)
	got, err := env.svc.CheckIn(context.Background(), user, res.ID, Proof{ScanCode: utils.SeatScanCode("A", "A-01")})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCheckedIn, got.Status)
	assert.Nil(t, got.Deadline)

	snap := env.d.snaps[res.ID]
	require.NotNil(t, snap)
	assert.Equal(t, model.OccupancyNormal, snap.Status)
	assert.Equal(t, env.clock.t, snap.LastSeen)
}

func TestCheckInWithGeofence(t *testing.T) {
	env := newTestEnv(t)
	user, res := reserveMorning(t, env)
	p := model.DefaultPolicy()

	env.clock.t = time.Date(2025, 3, 10, 7, 50, 0, 0, time.UTC)
	_, err := env.svc.CheckIn(context.Background(), user, res.ID, Proof{Lat: &p.SiteLat, Lng: &p.SiteLng})
	require.NoError(t, err)
}

func TestCheckInRejectsBadProof(t *testing.T) {
	env := newTestEnv(t)
	user, res := reserveMorning(t, env)

	farLat, farLng := 40.0, 116.0
	env.clock.t = time.Date(2025, 3, 10, 7, 50, 0, 0, time.UTC)
	_, err := env.svc.CheckIn(context.Background(), user, res.ID, Proof{
		Lat: &farLat, Lng: &farLng, ScanCode: "bogus",
	})
	requireRejection(t, err, CodePreconditionFailed, ReasonProofFailed)
	assert.Equal(t, model.StatusReserved, env.d.reservation(res.ID).Status)
}

func TestCheckInHidesForeignReservation(t *testing.T) {
	env := newTestEnv(t)
	_, res := reserveMorning(t, env)
	stranger := env.d.addUser(100)

	env.clock.t = time.Date(2025, 3, 10, 7, 50, 0, 0, time.UTC)
	_, err := env.svc.CheckIn(context.Background(), stranger, res.ID, Proof{ScanCode: utils.SeatScanCode("A", "A-01")})
	requireRejection(t, err, CodeNotFound, ReasonReservationGone)
}

func checkInMorning(t *testing.T, env *testEnv) (uint64, model.Reservation) {
	t.Helper()
	user, res := reserveMorning(t, env)
	env.clock.t = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	got, err := env.svc.CheckIn(context.Background(), user, res.ID, Proof{ScanCode: utils.SeatScanCode("A", "A-01")})
	require.NoError(t, err)
	return user, *got
}

func TestLeaveSetsAwayWithReturnDeadline(t *testing.T) {
	env := newTestEnv(t)
	user, res := checkInMorning(t, env)

	env.clock.t = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	got, err := env.svc.Leave(context.Background(), user, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAway, got.Status)
	require.NotNil(t, got.Deadline)
	assert.Equal(t, env.clock.t.Add(30*time.Minute), *got.Deadline)
}

func TestLeaveRequiresCheckedIn(t *testing.T) {
	env := newTestEnv(t)
	user, res := reserveMorning(t, env)

	_, err := env.svc.Leave(context.Background(), user, res.ID)
	requireRejection(t, err, CodePreconditionFailed, ReasonWrongStatus)
}

func TestReturnFromAway(t *testing.T) {
	env := newTestEnv(t)
	user, res := checkInMorning(t, env)

	env.clock.t = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	_, err := env.svc.Leave(context.Background(), user, res.ID)
	require.NoError(t, err)

	env.clock.t = env.clock.t.Add(10 * time.Minute)
	got, err := env.svc.CheckIn(context.Background(), user, res.ID, Proof{ScanCode: utils.SeatScanCode("A", "A-01")})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCheckedIn, got.Status)
	assert.Nil(t, got.Deadline)
	assert.Equal(t, env.clock.t, env.d.snaps[res.ID].LastSeen)
}

func TestReleaseLateCancellationIsViolation(t *testing.T) {
	env := newTestEnv(t)
	user, res := reserveMorning(t, env)

	// Past start − releaseBuffer (07:30) while still reserved.
	env.clock.t = time.Date(2025, 3, 10, 7, 45, 0, 0, time.UTC)
	got, err := env.svc.Release(context.Background(), user, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusViolation, got.Status)
	assert.Equal(t, 90, env.d.credits[user])
}

func TestReleaseEarlyCancellationNoPenalty(t *testing.T) {
	env := newTestEnv(t)
	user, res := reserveMorning(t, env)

	env.clock.t = time.Date(2025, 3, 10, 7, 10, 0, 0, time.UTC)
	got, err := env.svc.Release(context.Background(), user, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Equal(t, 100, env.d.credits[user])
}

func TestReleaseFromCheckedInAwardsBonus(t *testing.T) {
	env := newTestEnv(t)
	user, res := checkInMorning(t, env)
	env.d.credits[user] = 80

	env.clock.t = time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)
	got, err := env.svc.Release(context.Background(), user, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Equal(t, 82, env.d.credits[user])
	assert.NotContains(t, env.d.snaps, res.ID)
}

func TestReleaseFromAwayNoBonus(t *testing.T) {
	env := newTestEnv(t)
	user, res := checkInMorning(t, env)

	env.clock.t = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	_, err := env.svc.Leave(context.Background(), user, res.ID)
	require.NoError(t, err)

	got, err := env.svc.Release(context.Background(), user, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Equal(t, 100, env.d.credits[user])
}

func TestCreditNeverLeavesBounds(t *testing.T) {
	env := newTestEnv(t)
	user := env.d.addUser(5)

	score, err := fakeCredit{env.d}.AdjustCreditTx(context.Background(), nil, user, -50)
	require.NoError(t, err)
	assert.Equal(t, 0, score)

	score, err = fakeCredit{env.d}.AdjustCreditTx(context.Background(), nil, user, 150)
	require.NoError(t, err)
	assert.Equal(t, 100, score)
}

func TestForceReleaseEndsAnyActive(t *testing.T) {
	env := newTestEnv(t)
	user, res := checkInMorning(t, env)

	env.clock.t = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	got, err := env.svc.ForceRelease(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Equal(t, 100, env.d.credits[user])
	assert.NotContains(t, env.d.snaps, res.ID)

	_, err = env.svc.ForceRelease(context.Background(), res.ID)
	requireRejection(t, err, CodePreconditionFailed, ReasonWrongStatus)
}
