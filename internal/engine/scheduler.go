package engine

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"ecohub-core/internal/store"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type scheduleStore interface {
	GetSchedule(ctx context.Context, scheduleID string) (*store.Schedule, error)
	ListActiveSchedules(ctx context.Context) ([]store.Schedule, error)
	CreateSchedule(ctx context.Context, sc *store.Schedule) error
	UpdateSchedule(ctx context.Context, sc *store.Schedule) error
	SetScheduleActive(ctx context.Context, scheduleID string, active bool) error
	DeleteSchedule(ctx context.Context, scheduleID string) error
}

type commandPublisher interface {
	Publish(ctx context.Context, zoneID, deviceID, command, requestedBy string) error
}

// Scheduler fires stored device schedules: recurring kinds run as cron
// entries, one-shot kinds as timers. Firing is fire-and-forget: a failed
// publish is logged and the next occurrence still runs.
type Scheduler struct {
	schedules scheduleStore
	commands  commandPublisher

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
	timers  map[string]*time.Timer

	now    func() time.Time
	logger *zap.Logger
}

func NewScheduler(schedules scheduleStore, commands commandPublisher, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		schedules: schedules,
		commands:  commands,
		cron:      cron.New(),
		entries:   make(map[string]cron.EntryID),
		timers:    make(map[string]*time.Timer),
		now:       time.Now,
		logger:    logger,
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// deriveCommand maps a device type and schedule action to the wire command
// the device firmware understands.
func deriveCommand(deviceType, action string) (string, error) {
	commands := map[string]map[string]string{
		"pump":   {"activate": "PUMP_WATER_ON", "deactivate": "PUMP_WATER_OFF"},
		"fan":    {"activate": "TURN_FAN_ON", "deactivate": "TURN_FAN_OFF"},
		"heater": {"activate": "TURN_HEATER_ON", "deactivate": "TURN_HEATER_OFF"},
		"light":  {"activate": "TURN_LIGHT_ON", "deactivate": "TURN_LIGHT_OFF"},
	}
	byAction, ok := commands[deviceType]
	if !ok {
		return "", fmt.Errorf("unknown device type: %s", deviceType)
	}
	command, ok := byAction[action]
	if !ok {
		return "", fmt.Errorf("unknown action %s for device type %s", action, deviceType)
	}
	return command, nil
}

func parseClock(value string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q, want HH:MM: %w", value, err)
	}
	return t.Hour(), t.Minute(), nil
}

// validate rejects schedules missing the fields their repetition kind needs.
func (s *Scheduler) validate(sc *store.Schedule) error {
	if _, _, err := parseClock(sc.Time); err != nil {
		return err
	}
	switch sc.Repetition {
	case store.RepeatOnce:
		when, err := s.onceAt(sc)
		if err != nil {
			return err
		}
		if !when.After(s.now()) {
			return fmt.Errorf("one-shot schedule %s is in the past", sc.ID)
		}
	case store.RepeatDaily:
	case store.RepeatWeekly:
		if len(sc.DaysOfWeek) == 0 {
			return fmt.Errorf("weekly schedule %s has no days of week", sc.ID)
		}
		for _, d := range sc.DaysOfWeek {
			if d < 0 || d > 6 {
				return fmt.Errorf("weekly schedule %s has invalid day %d", sc.ID, d)
			}
		}
	case store.RepeatMonthly:
		if sc.DayOfMonth < 1 || sc.DayOfMonth > 31 {
			return fmt.Errorf("monthly schedule %s has invalid day of month %d", sc.ID, sc.DayOfMonth)
		}
	default:
		return fmt.Errorf("unknown repetition kind: %s", sc.Repetition)
	}
	return nil
}

func (s *Scheduler) onceAt(sc *store.Schedule) (time.Time, error) {
	hour, minute, err := parseClock(sc.Time)
	if err != nil {
		return time.Time{}, err
	}
	day, err := time.ParseInLocation("2006-01-02", sc.Date, s.now().Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD: %w", sc.Date, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location()), nil
}

func cronSpec(sc *store.Schedule, hour, minute int) string {
	switch sc.Repetition {
	case store.RepeatWeekly:
		days := append([]int(nil), sc.DaysOfWeek...)
		sort.Ints(days)
		parts := make([]string, len(days))
		for i, d := range days {
			parts[i] = strconv.Itoa(d)
		}
		return fmt.Sprintf("%d %d * * %s", minute, hour, strings.Join(parts, ","))
	case store.RepeatMonthly:
		return fmt.Sprintf("%d %d %d * *", minute, hour, sc.DayOfMonth)
	default:
		return fmt.Sprintf("%d %d * * *", minute, hour)
	}
}

// Register arms the job for a schedule. Re-registering the same id replaces
// its job; an inactive schedule only deregisters.
func (s *Scheduler) Register(sc store.Schedule) error {
	s.Deregister(sc.ID)
	if !sc.IsActive {
		return nil
	}
	if err := s.validate(&sc); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sc.Repetition == store.RepeatOnce {
		when, err := s.onceAt(&sc)
		if err != nil {
			return err
		}
		id := sc.ID
		s.timers[id] = time.AfterFunc(when.Sub(s.now()), func() {
			s.fire(sc)
			s.mu.Lock()
			delete(s.timers, id)
			s.mu.Unlock()
		})
		return nil
	}

	hour, minute, err := parseClock(sc.Time)
	if err != nil {
		return err
	}
	entryID, err := s.cron.AddFunc(cronSpec(&sc, hour, minute), func() { s.fire(sc) })
	if err != nil {
		return fmt.Errorf("error registering schedule %s: %w", sc.ID, err)
	}
	s.entries[sc.ID] = entryID
	return nil
}

// Deregister disarms a schedule's job if one is armed.
func (s *Scheduler) Deregister(scheduleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, ok := s.entries[scheduleID]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, scheduleID)
	}
	if t, ok := s.timers[scheduleID]; ok {
		t.Stop()
		delete(s.timers, scheduleID)
	}
}

// Jobs reports how many schedules currently have an armed job.
func (s *Scheduler) Jobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries) + len(s.timers)
}

func (s *Scheduler) fire(sc store.Schedule) {
	command := sc.Command
	if command == "" {
		derived, err := deriveCommand(sc.DeviceType, sc.Action)
		if err != nil {
			s.logger.Error("schedule fired without a derivable command",
				zap.String("schedule_id", sc.ID), zap.Error(err))
			return
		}
		command = derived
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.commands.Publish(ctx, sc.ZoneID, sc.DeviceID, command, "scheduler"); err != nil {
		s.logger.Error("scheduled command failed",
			zap.String("schedule_id", sc.ID), zap.String("zone_id", sc.ZoneID),
			zap.String("command", command), zap.Error(err))
		return
	}
	s.logger.Info("schedule fired",
		zap.String("schedule_id", sc.ID), zap.String("zone_id", sc.ZoneID),
		zap.String("command", command))
}

// Create validates, persists and arms a new schedule.
func (s *Scheduler) Create(ctx context.Context, sc *store.Schedule) error {
	if sc.Command == "" {
		command, err := deriveCommand(sc.DeviceType, sc.Action)
		if err != nil {
			return err
		}
		sc.Command = command
	}
	if err := s.validate(sc); err != nil {
		return err
	}
	if err := s.schedules.CreateSchedule(ctx, sc); err != nil {
		return err
	}
	return s.Register(*sc)
}

// Update persists the new definition and re-arms the job to match it.
func (s *Scheduler) Update(ctx context.Context, sc *store.Schedule) error {
	if err := s.validate(sc); err != nil {
		return err
	}
	if err := s.schedules.UpdateSchedule(ctx, sc); err != nil {
		return err
	}
	return s.Register(*sc)
}

// Delete removes the stored schedule and disarms its job.
func (s *Scheduler) Delete(ctx context.Context, scheduleID string) error {
	if err := s.schedules.DeleteSchedule(ctx, scheduleID); err != nil {
		return err
	}
	s.Deregister(scheduleID)
	return nil
}

// Toggle flips a schedule's active flag. Activation re-reads the full
// definition since arming needs more than the flag.
func (s *Scheduler) Toggle(ctx context.Context, scheduleID string, active bool) error {
	if !active {
		if err := s.schedules.SetScheduleActive(ctx, scheduleID, false); err != nil {
			return err
		}
		s.Deregister(scheduleID)
		return nil
	}

	sc, err := s.schedules.GetSchedule(ctx, scheduleID)
	if err != nil {
		return err
	}
	sc.IsActive = true
	if err := s.validate(sc); err != nil {
		return err
	}
	if err := s.schedules.SetScheduleActive(ctx, scheduleID, true); err != nil {
		return err
	}
	return s.Register(*sc)
}

// Reload disarms everything and rebuilds jobs from the active schedules in
// the store. Called at startup and whenever the store is edited out-of-band.
func (s *Scheduler) Reload(ctx context.Context) error {
	s.mu.Lock()
	for id, entryID := range s.entries {
		s.cron.Remove(entryID)
		delete(s.entries, id)
	}
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	schedules, err := s.schedules.ListActiveSchedules(ctx)
	if err != nil {
		return fmt.Errorf("error loading active schedules: %w", err)
	}

	registered := 0
	for _, sc := range schedules {
		if err := s.Register(sc); err != nil {
			s.logger.Warn("skipping unregisterable schedule",
				zap.String("schedule_id", sc.ID), zap.Error(err))
			continue
		}
		registered++
	}
	s.logger.Info("schedules reloaded",
		zap.Int("active", len(schedules)), zap.Int("registered", registered))
	return nil
}
