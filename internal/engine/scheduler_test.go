package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"ecohub-core/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeScheduleStore struct {
	schedules map[string]*store.Schedule
	active    []store.Schedule
}

func newFakeScheduleStore() *fakeScheduleStore {
	return &fakeScheduleStore{schedules: make(map[string]*store.Schedule)}
}

func (f *fakeScheduleStore) GetSchedule(_ context.Context, id string) (*store.Schedule, error) {
	sc, ok := f.schedules[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *sc
	return &copied, nil
}

func (f *fakeScheduleStore) ListActiveSchedules(_ context.Context) ([]store.Schedule, error) {
	return f.active, nil
}

func (f *fakeScheduleStore) CreateSchedule(_ context.Context, sc *store.Schedule) error {
	f.schedules[sc.ID] = sc
	return nil
}

func (f *fakeScheduleStore) UpdateSchedule(_ context.Context, sc *store.Schedule) error {
	f.schedules[sc.ID] = sc
	return nil
}

func (f *fakeScheduleStore) SetScheduleActive(_ context.Context, id string, active bool) error {
	sc, ok := f.schedules[id]
	if !ok {
		return store.ErrNotFound
	}
	sc.IsActive = active
	return nil
}

func (f *fakeScheduleStore) DeleteSchedule(_ context.Context, id string) error {
	if _, ok := f.schedules[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.schedules, id)
	return nil
}

type fakeCommandPublisher struct {
	mu       sync.Mutex
	commands []string
}

func (f *fakeCommandPublisher) Publish(_ context.Context, _, _, command, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, command)
	return nil
}

func (f *fakeCommandPublisher) published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

func newTestScheduler(t *testing.T) (*Scheduler, *fakeScheduleStore, *fakeCommandPublisher) {
	t.Helper()
	st := newFakeScheduleStore()
	pub := &fakeCommandPublisher{}
	s := NewScheduler(st, pub, zap.NewNop())
	s.now = func() time.Time {
		return time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	}
	return s, st, pub
}

func dailySchedule(id string) store.Schedule {
	return store.Schedule{
		ID:         id,
		ZoneID:     "zone-1",
		DeviceID:   "pump-1",
		DeviceType: "pump",
		Action:     "activate",
		Command:    "PUMP_WATER_ON",
		Time:       "06:30",
		Repetition: store.RepeatDaily,
		IsActive:   true,
	}
}

func TestDeriveCommand(t *testing.T) {
	cmd, err := deriveCommand("pump", "activate")
	require.NoError(t, err)
	assert.Equal(t, "PUMP_WATER_ON", cmd)

	cmd, err = deriveCommand("light", "deactivate")
	require.NoError(t, err)
	assert.Equal(t, "TURN_LIGHT_OFF", cmd)

	_, err = deriveCommand("sprinkler", "activate")
	assert.Error(t, err)

	_, err = deriveCommand("fan", "toggle")
	assert.Error(t, err)
}

func TestCronSpecs(t *testing.T) {
	daily := dailySchedule("s1")
	assert.Equal(t, "30 6 * * *", cronSpec(&daily, 6, 30))

	weekly := dailySchedule("s2")
	weekly.Repetition = store.RepeatWeekly
	weekly.DaysOfWeek = []int{3, 1}
	assert.Equal(t, "30 6 * * 1,3", cronSpec(&weekly, 6, 30))

	monthly := dailySchedule("s3")
	monthly.Repetition = store.RepeatMonthly
	monthly.DayOfMonth = 15
	assert.Equal(t, "30 6 15 * *", cronSpec(&monthly, 6, 30))
}

func TestRegisterIsIdempotent(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	require.NoError(t, s.Register(dailySchedule("s1")))
	require.NoError(t, s.Register(dailySchedule("s1")))

	assert.Equal(t, 1, s.Jobs())
}

func TestRegisterRejectsBadTime(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	sc := dailySchedule("s1")
	sc.Time = "25:99"
	assert.Error(t, s.Register(sc))
	assert.Zero(t, s.Jobs())
}

func TestRegisterRejectsWeeklyWithoutDays(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	sc := dailySchedule("s1")
	sc.Repetition = store.RepeatWeekly
	assert.Error(t, s.Register(sc))

	sc.DaysOfWeek = []int{7}
	assert.Error(t, s.Register(sc))
}

func TestRegisterRejectsMonthlyWithoutDay(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	sc := dailySchedule("s1")
	sc.Repetition = store.RepeatMonthly
	assert.Error(t, s.Register(sc))
}

func TestRegisterRejectsPastOneShot(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	sc := dailySchedule("s1")
	sc.Repetition = store.RepeatOnce
	sc.Date = "2026-03-09"
	assert.Error(t, s.Register(sc))
	assert.Zero(t, s.Jobs())
}

func TestRegisterFutureOneShot(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	sc := dailySchedule("s1")
	sc.Repetition = store.RepeatOnce
	sc.Date = "2026-03-11"
	require.NoError(t, s.Register(sc))
	assert.Equal(t, 1, s.Jobs())

	s.Deregister("s1")
	assert.Zero(t, s.Jobs())
}

func TestRegisterInactiveOnlyDeregisters(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	require.NoError(t, s.Register(dailySchedule("s1")))

	sc := dailySchedule("s1")
	sc.IsActive = false
	require.NoError(t, s.Register(sc))
	assert.Zero(t, s.Jobs())
}

func TestToggle(t *testing.T) {
	s, st, _ := newTestScheduler(t)
	ctx := context.Background()

	sc := dailySchedule("s1")
	require.NoError(t, s.Create(ctx, &sc))
	assert.Equal(t, 1, s.Jobs())

	require.NoError(t, s.Toggle(ctx, "s1", false))
	assert.Zero(t, s.Jobs())
	assert.False(t, st.schedules["s1"].IsActive)

	require.NoError(t, s.Toggle(ctx, "s1", true))
	assert.Equal(t, 1, s.Jobs())
	assert.True(t, st.schedules["s1"].IsActive)
}

func TestToggleUnknownSchedule(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	assert.ErrorIs(t, s.Toggle(context.Background(), "missing", true), store.ErrNotFound)
}

func TestCreateDerivesCommand(t *testing.T) {
	s, st, _ := newTestScheduler(t)

	sc := dailySchedule("s1")
	sc.Command = ""
	sc.DeviceType = "heater"
	require.NoError(t, s.Create(context.Background(), &sc))
	assert.Equal(t, "TURN_HEATER_ON", st.schedules["s1"].Command)
}

func TestReloadRebuildsFromStore(t *testing.T) {
	s, st, _ := newTestScheduler(t)

	require.NoError(t, s.Register(dailySchedule("stale")))

	broken := dailySchedule("broken")
	broken.Time = "bad"
	st.active = []store.Schedule{dailySchedule("s1"), dailySchedule("s2"), broken}

	require.NoError(t, s.Reload(context.Background()))
	assert.Equal(t, 2, s.Jobs())
}

func TestFirePublishesCommand(t *testing.T) {
	s, _, pub := newTestScheduler(t)

	s.fire(dailySchedule("s1"))
	assert.Equal(t, []string{"PUMP_WATER_ON"}, pub.published())

	sc := dailySchedule("s2")
	sc.Command = ""
	sc.DeviceType = "fan"
	s.fire(sc)
	assert.Equal(t, []string{"PUMP_WATER_ON", "TURN_FAN_ON"}, pub.published())
}
