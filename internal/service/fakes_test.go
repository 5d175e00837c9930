package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/library-seat-reservation/internal/model"
	"github.com/iliyamo/library-seat-reservation/internal/queue"
	"github.com/iliyamo/library-seat-reservation/internal/repository"
)

// fakeData holds the shared in-memory state behind the store fakes.  The
// *sql.Tx arguments are ignored everywhere; fakeTx.RunTx invokes fn with a
// nil tx so the service code paths stay identical.
type fakeData struct {
	mu      sync.Mutex
	nextID  uint64
	seats   map[uint64]*model.Seat
	resvs   map[uint64]*model.Reservation
	snaps   map[uint64]*model.OccupancySnapshot // keyed by reservation ID
	credits map[uint64]int
}

func newFakeData() *fakeData {
	return &fakeData{
		seats:   map[uint64]*model.Seat{},
		resvs:   map[uint64]*model.Reservation{},
		snaps:   map[uint64]*model.OccupancySnapshot{},
		credits: map[uint64]int{},
	}
}

func (d *fakeData) id() uint64 { d.nextID++; return d.nextID }

func (d *fakeData) addSeat(seatNo, area string) *model.Seat {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := &model.Seat{ID: d.id(), SeatNo: seatNo, Area: area, Status: model.SeatAvailable}
	d.seats[s.ID] = s
	return s
}

func (d *fakeData) addUser(score int) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.id()
	d.credits[id] = score
	return id
}

func (d *fakeData) reservation(id uint64) model.Reservation {
	d.mu.Lock()
	defer d.mu.Unlock()
	return *d.resvs[id]
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

type fakeTx struct{}

func (fakeTx) RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error { return fn(nil) }

// --- SeatStore ---

type fakeSeats struct{ d *fakeData }

func (f fakeSeats) GetByID(ctx context.Context, id uint64) (*model.Seat, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	s, ok := f.d.seats[id]
	if !ok {
		return nil, repository.ErrSeatNotFound
	}
	cp := *s
	return &cp, nil
}

func (f fakeSeats) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Seat, error) {
	return f.GetByID(ctx, id)
}

func (f fakeSeats) RecomputeStatusTx(ctx context.Context, tx *sql.Tx, seatID uint64, now time.Time) (string, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	s, ok := f.d.seats[seatID]
	if !ok {
		return "", repository.ErrSeatNotFound
	}
	if s.Status == model.SeatMaintenance {
		return s.Status, nil
	}
	status := model.SeatAvailable
	for _, r := range f.d.resvs {
		if r.SeatID == seatID && r.Active() && !now.Before(r.StartTime) && now.Before(r.EndTime) {
			status = model.SeatOccupied
			break
		}
	}
	s.Status = status
	return status, nil
}

func (f fakeSeats) List(ctx context.Context) ([]model.Seat, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	out := make([]model.Seat, 0, len(f.d.seats))
	for _, s := range f.d.seats {
		if !s.Deleted {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeSeats) Create(ctx context.Context, s *model.Seat) error {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	for _, have := range f.d.seats {
		if !have.Deleted && have.SeatNo == s.SeatNo {
			return repository.ErrSeatNoExists
		}
	}
	s.ID = f.d.id()
	cp := *s
	f.d.seats[s.ID] = &cp
	return nil
}

func (f fakeSeats) Update(ctx context.Context, s *model.Seat) error {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	have, ok := f.d.seats[s.ID]
	if !ok || have.Deleted {
		return repository.ErrSeatNotFound
	}
	have.SeatNo, have.Area, have.Type, have.X, have.Y = s.SeatNo, s.Area, s.Type, s.X, s.Y
	return nil
}

func (f fakeSeats) SoftDelete(ctx context.Context, id uint64) error {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	s, ok := f.d.seats[id]
	if !ok || s.Deleted {
		return repository.ErrSeatNotFound
	}
	for _, r := range f.d.resvs {
		if r.SeatID == id && r.Active() {
			return repository.ErrSeatInUse
		}
	}
	s.Deleted = true
	return nil
}

func (f fakeSeats) SetStatus(ctx context.Context, id uint64, status string) error {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	s, ok := f.d.seats[id]
	if !ok || s.Deleted {
		return repository.ErrSeatNotFound
	}
	s.Status = status
	return nil
}

func (f fakeSeats) SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	return f.SetStatus(ctx, id, status)
}

// --- ReservationStore ---

type fakeResvs struct{ d *fakeData }

func (f fakeResvs) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	res.ID = f.d.id()
	cp := *res
	f.d.resvs[res.ID] = &cp
	return nil
}

func (f fakeResvs) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	r, ok := f.d.resvs[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	cp := *r
	return &cp, nil
}

func (f fakeResvs) TransitionTx(ctx context.Context, tx *sql.Tx, id uint64, from []string, to string, deadline, endTime *time.Time) (bool, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	r, ok := f.d.resvs[id]
	if !ok {
		return false, nil
	}
	matched := false
	for _, s := range from {
		if r.Status == s {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	r.Status = to
	r.Deadline = nil
	if deadline != nil {
		d := *deadline
		r.Deadline = &d
	}
	if endTime != nil {
		r.EndTime = *endTime
	}
	return true, nil
}

func (f fakeResvs) CountActiveBySeatSlotTx(ctx context.Context, tx *sql.Tx, seatID uint64, slot string, day time.Time) (int, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	n := 0
	for _, r := range f.d.resvs {
		if r.SeatID == seatID && r.Slot == slot && r.Active() && sameDay(r.StartTime, day) {
			n++
		}
	}
	return n, nil
}

func (f fakeResvs) CountActiveByUserSlotTx(ctx context.Context, tx *sql.Tx, userID uint64, slot string, day time.Time) (int, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	n := 0
	for _, r := range f.d.resvs {
		if r.UserID == userID && r.Slot == slot && r.Active() && sameDay(r.StartTime, day) {
			n++
		}
	}
	return n, nil
}

func (f fakeResvs) NextReservedTx(ctx context.Context, tx *sql.Tx, userID, seatID uint64, slot string, day time.Time) (*model.Reservation, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	for _, r := range f.d.resvs {
		if r.UserID == userID && r.SeatID == seatID && r.Slot == slot &&
			r.Status == model.StatusReserved && sameDay(r.StartTime, day) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrReservationNotFound
}

func (f fakeResvs) ActiveBySeatTx(ctx context.Context, tx *sql.Tx, seatID uint64) (*model.Reservation, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	for _, r := range f.d.resvs {
		if r.SeatID == seatID && r.Active() {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrReservationNotFound
}

func (f fakeResvs) ActiveSlotMap(ctx context.Context, day time.Time) (map[uint64]map[string]string, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	out := map[uint64]map[string]string{}
	for _, r := range f.d.resvs {
		if r.Active() && sameDay(r.StartTime, day) {
			if out[r.SeatID] == nil {
				out[r.SeatID] = map[string]string{}
			}
			out[r.SeatID][r.Slot] = r.Status
		}
	}
	return out, nil
}

func (f fakeResvs) listWhere(pred func(*model.Reservation) bool) []model.Reservation {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	var out []model.Reservation
	for _, r := range f.d.resvs {
		if pred(r) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func hasStatus(statuses []string, s string) bool {
	for _, v := range statuses {
		if v == s {
			return true
		}
	}
	return false
}

func (f fakeResvs) ListByStatusDeadlineBefore(ctx context.Context, statuses []string, t time.Time) ([]model.Reservation, error) {
	return f.listWhere(func(r *model.Reservation) bool {
		return hasStatus(statuses, r.Status) && r.Deadline != nil && r.Deadline.Before(t)
	}), nil
}

func (f fakeResvs) ListByStatusDeadlineBetween(ctx context.Context, statuses []string, from, to time.Time) ([]model.Reservation, error) {
	return f.listWhere(func(r *model.Reservation) bool {
		return hasStatus(statuses, r.Status) && r.Deadline != nil &&
			!r.Deadline.Before(from) && !r.Deadline.After(to)
	}), nil
}

func (f fakeResvs) ListCheckedInEndedBefore(ctx context.Context, t time.Time) ([]model.Reservation, error) {
	return f.listWhere(func(r *model.Reservation) bool {
		return r.Status == model.StatusCheckedIn && r.EndTime.Before(t)
	}), nil
}

func (f fakeResvs) ListByStatuses(ctx context.Context, statuses []string) ([]model.Reservation, error) {
	return f.listWhere(func(r *model.Reservation) bool {
		return hasStatus(statuses, r.Status)
	}), nil
}

// --- CreditLedger ---

type fakeCredit struct{ d *fakeData }

func (f fakeCredit) CreditScore(ctx context.Context, id uint64) (int, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	score, ok := f.d.credits[id]
	if !ok {
		return 0, repository.ErrUserNotFound
	}
	return score, nil
}

func (f fakeCredit) AdjustCreditTx(ctx context.Context, tx *sql.Tx, id uint64, delta int) (int, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	score, ok := f.d.credits[id]
	if !ok {
		return 0, repository.ErrUserNotFound
	}
	score += delta
	if score < model.CreditMin {
		score = model.CreditMin
	}
	if score > model.CreditMax {
		score = model.CreditMax
	}
	f.d.credits[id] = score
	return score, nil
}

// --- OccupancyStore ---

type fakeOcc struct{ d *fakeData }

func (f fakeOcc) CreateTx(ctx context.Context, tx *sql.Tx, o *model.OccupancySnapshot) error {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	o.ID = f.d.id()
	cp := *o
	f.d.snaps[o.ReservationID] = &cp
	return nil
}

func (f fakeOcc) GetByReservation(ctx context.Context, reservationID uint64) (*model.OccupancySnapshot, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	s, ok := f.d.snaps[reservationID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f fakeOcc) TouchTx(ctx context.Context, tx *sql.Tx, reservationID uint64, seenAt time.Time) error {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	s, ok := f.d.snaps[reservationID]
	if !ok || s.Status == model.OccupancyOccupied {
		return nil
	}
	s.LastSeen = seenAt
	s.AwayMinutes = 0
	s.Status = model.OccupancyNormal
	return nil
}

func (f fakeOcc) MarkTx(ctx context.Context, tx *sql.Tx, reservationID uint64, status string, awayMinutes int, bumpWarning bool) error {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	s, ok := f.d.snaps[reservationID]
	if !ok {
		return nil
	}
	s.Status = status
	s.AwayMinutes = awayMinutes
	if bumpWarning {
		s.WarningCount++
	}
	return nil
}

func (f fakeOcc) DeleteTx(ctx context.Context, tx *sql.Tx, reservationID uint64) error {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	delete(f.d.snaps, reservationID)
	return nil
}

func (f fakeOcc) ListMonitored(ctx context.Context) ([]model.OccupancySnapshot, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	var out []model.OccupancySnapshot
	for _, s := range f.d.snaps {
		if s.Status == model.OccupancyNormal || s.Status == model.OccupancyWarning {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReservationID < out[j].ReservationID })
	return out, nil
}

// --- collaborators ---

type fakePolicy struct{ p model.Policy }

func (f fakePolicy) Current(ctx context.Context) model.Policy { return f.p }

type fakeLock struct {
	contended bool
	acquired  int
	released  int
}

func (f *fakeLock) TryAcquire(ctx context.Context, seatID uint64) (func(), bool, error) {
	if f.contended {
		return nil, false, nil
	}
	f.acquired++
	return func() { f.released++ }, true, nil
}

type fakePresence struct{ online map[uint64]bool }

func (f fakePresence) IsOnline(ctx context.Context, userID uint64) bool { return f.online[userID] }

type note struct {
	userID   uint64
	severity string
	title    string
}

type fakeNotifier struct {
	mu    sync.Mutex
	notes []note
}

func (f *fakeNotifier) Notify(ctx context.Context, userID uint64, severity, title, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, note{userID: userID, severity: severity, title: title})
}

func (f *fakeNotifier) count(userID uint64, title string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, nt := range f.notes {
		if nt.userID == userID && nt.title == title {
			n++
		}
	}
	return n
}

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func noopPublish(ctx context.Context, ev queue.ReservationEvent) error { return nil }
