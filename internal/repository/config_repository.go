package repository

import (
	"context"
	"database/sql"
	"strconv"
	"sync"
	"time"

	"github.com/iliyamo/library-seat-reservation/internal/model"
)

// ConfigRepo reads tunable policy values from the sys_config table.
// Every key falls back to its coded default when absent or malformed, so
// a fresh database works without seeding.  The assembled Policy is cached
// briefly; sweeps run every minute and do not need a fresher view.
type ConfigRepo struct {
	db *sql.DB

	mu      sync.Mutex
	cached  model.Policy
	fetched time.Time
}

const policyCacheTTL = 30 * time.Second

func NewConfigRepo(db *sql.DB) *ConfigRepo { return &ConfigRepo{db: db} }

// Value returns the raw string for key, or def when the key is absent.
func (r *ConfigRepo) Value(ctx context.Context, key, def string) string {
	var v string
	err := r.db.QueryRowContext(ctx,
		`SELECT config_value FROM sys_config WHERE config_key = ?`, key).Scan(&v)
	if err != nil {
		return def
	}
	return v
}

// SetValue upserts a configuration key and invalidates the policy cache.
func (r *ConfigRepo) SetValue(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sys_config (config_key, config_value) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE config_value = VALUES(config_value)`, key, value)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.fetched = time.Time{}
	r.mu.Unlock()
	return nil
}

func (r *ConfigRepo) intValue(ctx context.Context, key string, def int) int {
	v := r.Value(ctx, key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (r *ConfigRepo) floatValue(ctx context.Context, key string, def float64) float64 {
	v := r.Value(ctx, key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func minutes(n int) time.Duration { return time.Duration(n) * time.Minute }

// Current assembles the effective policy from sys_config over the coded
// defaults.
func (r *ConfigRepo) Current(ctx context.Context) model.Policy {
	r.mu.Lock()
	if time.Since(r.fetched) < policyCacheTTL {
		p := r.cached
		r.mu.Unlock()
		return p
	}
	r.mu.Unlock()

	def := model.DefaultPolicy()
	p := model.Policy{
		CheckInBefore:      minutes(r.intValue(ctx, "check_in_before_min", int(def.CheckInBefore.Minutes()))),
		CheckInAfter:       minutes(r.intValue(ctx, "check_in_after_min", int(def.CheckInAfter.Minutes()))),
		ViolationWindow:    minutes(r.intValue(ctx, "violation_window_min", int(def.ViolationWindow.Minutes()))),
		OccupancyWarning:   minutes(r.intValue(ctx, "occupancy_warning_min", int(def.OccupancyWarning.Minutes()))),
		OccupancyViolation: minutes(r.intValue(ctx, "occupancy_violation_min", int(def.OccupancyViolation.Minutes()))),
		ReleaseBuffer:      minutes(r.intValue(ctx, "release_buffer_min", int(def.ReleaseBuffer.Minutes()))),
		ReminderLookahead:  minutes(r.intValue(ctx, "reminder_lookahead_min", int(def.ReminderLookahead.Minutes()))),

		MinCreditScore:          r.intValue(ctx, "min_credit_score", def.MinCreditScore),
		CreditPenaltyNoShow:     r.intValue(ctx, "credit_penalty_no_show", def.CreditPenaltyNoShow),
		CreditPenaltyLateCancel: r.intValue(ctx, "credit_penalty_late_cancel", def.CreditPenaltyLateCancel),
		CreditPenaltyOccupancy:  r.intValue(ctx, "credit_penalty_occupancy", def.CreditPenaltyOccupancy),
		CreditBonusCompleted:    r.intValue(ctx, "credit_bonus_completed", def.CreditBonusCompleted),

		ClosingHour:    r.intValue(ctx, "closing_hour", def.ClosingHour),
		GeofenceRadius: r.floatValue(ctx, "geofence_radius_m", def.GeofenceRadius),
		SiteLat:        r.floatValue(ctx, "site_lat", def.SiteLat),
		SiteLng:        r.floatValue(ctx, "site_lng", def.SiteLng),
	}

	r.mu.Lock()
	r.cached = p
	r.fetched = time.Now()
	r.mu.Unlock()
	return p
}
