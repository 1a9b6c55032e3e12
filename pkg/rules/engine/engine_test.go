// $ go test -v -count=1 pkg/rules/engine/*.go

package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moonwalker/assetwatch/pkg/datasource"
	"github.com/moonwalker/assetwatch/pkg/notify"
	"github.com/moonwalker/assetwatch/pkg/registry"
	"github.com/moonwalker/assetwatch/pkg/rules"
	"github.com/moonwalker/assetwatch/pkg/rules/repo"
)

type sent struct {
	message string
	title   string
	opts    notify.Options
}

type recordingNotifier struct {
	sync.Mutex
	sent []sent
}

func (n *recordingNotifier) Notify(ctx context.Context, message, title string, opts notify.Options) error {
	n.Lock()
	defer n.Unlock()
	n.sent = append(n.sent, sent{message, title, opts})
	return nil
}

func (n *recordingNotifier) count() int {
	n.Lock()
	defer n.Unlock()
	return len(n.sent)
}

type alertList []*rules.AlertConfig

func (l alertList) All() []*rules.AlertConfig { return l }

func (l alertList) Get(id string) (*rules.AlertConfig, error) {
	for _, a := range l {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, registry.ErrNotFound
}

type failingSource struct{}

func (failingSource) FetchRecords(ctx context.Context, module string) ([]rules.Facts, error) {
	return nil, errors.New("api down")
}

type blockingSource struct{}

func (blockingSource) FetchRecords(ctx context.Context, module string) ([]rules.Facts, error) {
	select {}
}

func clockAt(hour, minute int) func() time.Time {
	return func() time.Time {
		return time.Date(2024, 3, 4, hour, minute, 0, 0, time.UTC)
	}
}

func testData() *datasource.Static {
	s := datasource.NewStatic()
	s.Set(rules.MODULE_INVENTORY,
		`{"serial":"PC-1","marca":"Dell","estado":"REPARACION"}`,
		`{"serial":"PC-2","marca":"HP","estado":"REPARACION"}`,
		`{"serial":"PC-3","marca":"Dell","estado":"ASIGNADO"}`,
	)
	s.Set(rules.MODULE_LOANS, `{"estado":"ACTIVO"}`)
	return s
}

func repairAlert(id, startAt string, trigger *rules.Trigger) *rules.AlertConfig {
	return &rules.AlertConfig{
		ID:       id,
		Name:     "Reparación",
		Message:  "Equipos en reparación",
		Module:   rules.MODULE_INVENTORY,
		StartAt:  startAt,
		Active:   true,
		RootRule: rules.And(rules.Literal("estado", rules.COMPARER_EQUAL, "reparacion")),
		Trigger:  trigger,
	}
}

func newTestEngine(alerts AlertSource, data datasource.Source, n notify.Notifier, opts Options) *Engine {
	return NewEngine(alerts, data, n, rules.NewEvaluator(nil), opts)
}

func TestTickTimeGate(t *testing.T) {
	n := &recordingNotifier{}
	alerts := alertList{repairAlert("a", "16:00", nil)}

	e := newTestEngine(alerts, testData(), n, Options{Clock: clockAt(15, 59), Location: time.UTC})
	defer e.Close()
	res := e.Tick(context.Background())
	assert.Equal(t, 0, res.Evaluated)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 0, n.count())

	e.opts.Clock = clockAt(16, 0)
	res = e.Tick(context.Background())
	assert.Equal(t, 1, res.Evaluated)
	assert.Equal(t, []string{"a"}, res.Fired)
	require.Equal(t, 1, n.count())
	assert.Equal(t, "Equipos en reparación", n.sent[0].message)
	assert.Equal(t, "Reparación", n.sent[0].title)
	assert.Equal(t, 2, n.sent[0].opts.Count)
	assert.Equal(t, notify.DEFAULT_TIMEOUT, n.sent[0].opts.Timeout)
}

func TestTickQuantitativeMessage(t *testing.T) {
	n := &recordingNotifier{}
	alerts := alertList{
		repairAlert("gte2", "08:00", &rules.Trigger{Operator: rules.COMPARER_GREATER_OR_EQUAL, Value: 2}),
		repairAlert("gte3", "08:00", &rules.Trigger{Operator: rules.COMPARER_GREATER_OR_EQUAL, Value: 3}),
	}

	e := newTestEngine(alerts, testData(), n, Options{Clock: clockAt(9, 0), Location: time.UTC})
	defer e.Close()
	res := e.Tick(context.Background())
	assert.Equal(t, []string{"gte2"}, res.Fired)
	require.Equal(t, 1, n.count())
	assert.Equal(t, "Equipos en reparación (Detectados: 2)", n.sent[0].message)
}

func TestRefirePolicy(t *testing.T) {
	alerts := alertList{repairAlert("a", "08:00", nil)}

	daily := &recordingNotifier{}
	e := newTestEngine(alerts, testData(), daily, Options{Clock: clockAt(9, 0), Location: time.UTC})
	defer e.Close()
	e.Tick(context.Background())
	res := e.Tick(context.Background())
	assert.Empty(t, res.Fired)
	assert.Equal(t, 1, daily.count())

	// next day fires again
	e.opts.Clock = func() time.Time { return time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC) }
	e.Tick(context.Background())
	assert.Equal(t, 2, daily.count())

	tick := &recordingNotifier{}
	e2 := newTestEngine(alerts, testData(), tick, Options{Clock: clockAt(9, 0), Location: time.UTC, Refire: REFIRE_TICK})
	defer e2.Close()
	e2.Tick(context.Background())
	e2.Tick(context.Background())
	assert.Equal(t, 2, tick.count())
}

func TestTickSkipsInactiveAndMalformedStart(t *testing.T) {
	inactive := repairAlert("off", "00:00", nil)
	inactive.Active = false
	alerts := alertList{inactive, repairAlert("bad", "25:99", nil), repairAlert("empty", "", nil)}

	n := &recordingNotifier{}
	e := newTestEngine(alerts, testData(), n, Options{Clock: clockAt(23, 59), Location: time.UTC})
	defer e.Close()
	res := e.Tick(context.Background())
	assert.Equal(t, 0, res.Evaluated)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 0, n.count())
}

func TestTickIsolatesFailures(t *testing.T) {
	loans := &rules.AlertConfig{
		ID:       "loans",
		Name:     "Préstamos",
		Module:   rules.MODULE_LOANS,
		StartAt:  "00:00",
		Active:   true,
		RootRule: rules.And(),
	}
	alerts := alertList{repairAlert("inv", "00:00", nil), loans}
	data := datasource.Router{
		rules.MODULE_INVENTORY: failingSource{},
		rules.MODULE_LOANS:     testData(),
	}

	n := &recordingNotifier{}
	e := newTestEngine(alerts, data, n, Options{Clock: clockAt(12, 0), Location: time.UTC})
	defer e.Close()
	res := e.Tick(context.Background())
	assert.Equal(t, 2, res.Evaluated)
	assert.Equal(t, []string{"loans"}, res.Fired)
	require.Contains(t, res.Errors, "inv")
	assert.ErrorContains(t, res.Errors["inv"], "api down")
}

func TestTickAlertTimeout(t *testing.T) {
	alerts := alertList{repairAlert("slow", "00:00", nil)}
	n := &recordingNotifier{}
	e := newTestEngine(alerts, blockingSource{}, n, Options{
		Clock:        clockAt(12, 0),
		Location:     time.UTC,
		AlertTimeout: 20 * time.Millisecond,
	})
	defer e.Close()

	res := e.Tick(context.Background())
	assert.ErrorIs(t, res.Errors["slow"], context.DeadlineExceeded)
	assert.Equal(t, 0, n.count())
}

func TestGeneralModuleIsInert(t *testing.T) {
	a := repairAlert("gen", "00:00", nil)
	a.Module = rules.MODULE_GENERAL
	n := &recordingNotifier{}
	e := newTestEngine(alertList{a}, datasource.Router{}, n, Options{Clock: clockAt(12, 0), Location: time.UTC})
	defer e.Close()

	res := e.Tick(context.Background())
	assert.Equal(t, 1, res.Evaluated)
	assert.Empty(t, res.Fired)
	assert.Empty(t, res.Errors)
}

func TestPauseResume(t *testing.T) {
	n := &recordingNotifier{}
	e := newTestEngine(alertList{repairAlert("a", "00:00", nil)}, testData(), n, Options{Clock: clockAt(12, 0), Location: time.UTC, Refire: REFIRE_TICK})
	defer e.Close()

	e.Pause()
	assert.Equal(t, 0, e.Tick(context.Background()).Evaluated)
	e.Resume()
	assert.Equal(t, 1, e.Tick(context.Background()).Evaluated)
}

func TestCheck(t *testing.T) {
	n := &recordingNotifier{}
	e := newTestEngine(alertList{repairAlert("a", "23:59", nil)}, testData(), n, Options{Clock: clockAt(0, 0), Location: time.UTC})
	defer e.Close()

	res, err := e.Check(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.True(t, res.Triggered)
	assert.Equal(t, "PC-1", res.Matches[0].Get("serial").String())
	assert.Equal(t, 0, n.count())

	_, err = e.Check(context.Background(), "missing")
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestCommandsReload(t *testing.T) {
	r := registry.New(repo.NewInMemoryAlertRepo(), registry.WithoutSeed())
	require.NoError(t, r.Load())

	stats := make(chan *EngineStats, 10)
	e := newTestEngine(r, testData(), &recordingNotifier{}, Options{Location: time.UTC})
	defer e.Close()
	e.OnStats(time.Hour, func(s *EngineStats) { stats <- s })
	assert.Equal(t, 0, (<-stats).ActiveAlerts)

	_, err := r.Create(repairAlert("", "00:00", nil))
	require.NoError(t, err)

	e.Commands <- &rules.Command{Topic: rules.CmdReload}
	select {
	case s := <-stats:
		assert.Equal(t, 1, s.ActiveAlerts)
	case <-time.After(time.Second):
		t.Fatal("no stats after reload")
	}

	e.Commands <- &rules.Command{Topic: rules.CmdPause}
	select {
	case s := <-stats:
		assert.False(t, s.EngineEnabled)
	case <-time.After(time.Second):
		t.Fatal("no stats after pause")
	}
}

func TestStartStop(t *testing.T) {
	e := newTestEngine(alertList{}, testData(), &recordingNotifier{}, Options{Tick: time.Hour})
	defer e.Close()

	require.NoError(t, e.Start())
	assert.True(t, e.Running())
	assert.ErrorIs(t, e.Start(), ErrRunning)
	require.NoError(t, e.Stop())
	assert.False(t, e.Running())
	assert.ErrorIs(t, e.Stop(), ErrNotRunning)
}

// gatedSource blocks every fetch until released.
type gatedSource struct {
	datasource.Source
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedSource() *gatedSource {
	return &gatedSource{
		Source:  testData(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedSource) FetchRecords(ctx context.Context, module string) ([]rules.Facts, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.Source.FetchRecords(ctx, module)
}

func TestStopWaitsForInFlightEvaluation(t *testing.T) {
	n := &recordingNotifier{}
	src := newGatedSource()
	e := newTestEngine(alertList{repairAlert("a", "00:00", nil)}, src, n, Options{
		Tick:     time.Second,
		Clock:    clockAt(9, 0),
		Location: time.UTC,
	})
	defer e.Close()
	require.NoError(t, e.Start())

	select {
	case <-src.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("no tick started")
	}

	stopped := make(chan struct{})
	go func() {
		assert.NoError(t, e.Stop())
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("stop returned during an evaluation")
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, 0, n.count())

	close(src.release)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("stop did not return")
	}
	assert.Equal(t, 1, n.count())
}

func TestTickRefreshesSharedRepo(t *testing.T) {
	shared, err := repo.NewDiskAlertRepo(t.TempDir())
	require.NoError(t, err)

	served := registry.New(shared, registry.WithoutSeed())
	require.NoError(t, served.Load())
	cli := registry.New(shared, registry.WithoutSeed())
	require.NoError(t, cli.Load())

	n := &recordingNotifier{}
	e := newTestEngine(served, testData(), n, Options{Clock: clockAt(9, 0), Location: time.UTC, Refresh: true})
	defer e.Close()
	assert.Equal(t, 0, e.Tick(context.Background()).Evaluated)

	a, err := cli.Create(repairAlert("", "08:00", nil))
	require.NoError(t, err)

	res := e.Tick(context.Background())
	assert.Equal(t, 1, res.Evaluated)
	assert.Equal(t, []string{a.ID}, res.Fired)

	require.NoError(t, cli.Toggle(a.ID))
	e.opts.Refire = REFIRE_TICK
	res = e.Tick(context.Background())
	assert.Equal(t, 0, res.Evaluated)
	assert.Equal(t, 1, n.count())
}

func TestTickWithoutRefreshUsesLoadedSet(t *testing.T) {
	shared, err := repo.NewDiskAlertRepo(t.TempDir())
	require.NoError(t, err)

	served := registry.New(shared, registry.WithoutSeed())
	require.NoError(t, served.Load())
	cli := registry.New(shared, registry.WithoutSeed())
	require.NoError(t, cli.Load())

	e := newTestEngine(served, testData(), &recordingNotifier{}, Options{Clock: clockAt(9, 0), Location: time.UTC})
	defer e.Close()

	_, err = cli.Create(repairAlert("", "08:00", nil))
	require.NoError(t, err)
	assert.Equal(t, 0, e.Tick(context.Background()).Evaluated)
}

func TestCloseEndsCommandLoop(t *testing.T) {
	n := &recordingNotifier{}
	src := newGatedSource()
	e := newTestEngine(alertList{repairAlert("a", "00:00", nil)}, src, n, Options{Clock: clockAt(9, 0), Location: time.UTC})

	e.Commands <- &rules.Command{Topic: rules.CmdTick}
	select {
	case <-src.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("command tick did not start")
	}

	closed := make(chan struct{})
	go func() {
		e.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("close returned during a command tick")
	case <-time.After(100 * time.Millisecond):
	}

	close(src.release)
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("close did not return")
	}
	assert.Equal(t, 1, n.count())

	select {
	case <-e.loopDone:
	default:
		t.Fatal("command loop still running")
	}
	select {
	case e.Commands <- &rules.Command{Topic: rules.CmdPause}:
		t.Fatal("command accepted after close")
	case <-time.After(50 * time.Millisecond):
	}
}
