package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/moonwalker/assetwatch/pkg/datasource"
	"github.com/moonwalker/assetwatch/pkg/notify"
	"github.com/moonwalker/assetwatch/pkg/parse"
	"github.com/moonwalker/assetwatch/pkg/rules"
	"github.com/moonwalker/assetwatch/pkg/worker"
)

const (
	REFIRE_DAILY = "daily"
	REFIRE_TICK  = "tick"

	DEFAULT_TICK          = 60 * time.Second
	DEFAULT_ALERT_TIMEOUT = 10 * time.Second
	DEFAULT_WORKERS       = 4

	QUEUE_EVALUATE = "alerts:evaluate"

	dayLayout = "2006-01-02"
)

var (
	ErrRunning    = errors.New("engine already running")
	ErrNotRunning = errors.New("engine not running")
)

// AlertSource is the read side of the alert registry.
type AlertSource interface {
	All() []*rules.AlertConfig
	Get(id string) (*rules.AlertConfig, error)
}

type reloader interface {
	Load() error
}

// refresher re-reads alerts other processes wrote to a shared repository.
type refresher interface {
	Refresh() error
}

type Options struct {
	Tick         time.Duration
	AlertTimeout time.Duration
	Workers      int
	Refire       string
	Location     *time.Location
	Clock        func() time.Time
	// re-read the alert repository at the start of every tick
	Refresh      bool
}

func (o Options) withDefaults() Options {
	if o.Tick <= 0 {
		o.Tick = DEFAULT_TICK
	}
	if o.AlertTimeout <= 0 {
		o.AlertTimeout = DEFAULT_ALERT_TIMEOUT
	}
	if o.Workers <= 0 {
		o.Workers = DEFAULT_WORKERS
	}
	if o.Refire != REFIRE_TICK {
		o.Refire = REFIRE_DAILY
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

type Engine struct {
	sync.Mutex
	tickMu     sync.Mutex
	opts       Options
	enabled    bool
	running    bool
	onStats    func(*EngineStats)
	stopStats  chan struct{}
	alerts     AlertSource
	data       datasource.Source
	notifier   notify.Notifier
	evaluator  rules.Evaluator
	dispatcher *worker.Dispatcher
	cron       *cron.Cron
	fired      map[string]string
	lastTick   *TickResult
	ticks      sync.WaitGroup
	closeOnce  sync.Once
	quit       chan struct{}
	loopDone   chan struct{}
	Commands   chan *rules.Command
}

type EngineStats struct {
	EngineEnabled bool      `json:"engineEnabled"`
	Running       bool      `json:"running"`
	Refire        string    `json:"refire"`
	ActiveAlerts  int       `json:"activeAlerts"`
	LastTick      time.Time `json:"lastTick,omitempty"`
	LastFired     int       `json:"lastFired"`
	LastErrors    int       `json:"lastErrors"`
}

// CheckResult is the outcome of evaluating one alert against its module
// records.
type CheckResult struct {
	AlertID   string        `json:"alertId"`
	Matches   []rules.Facts `json:"matches"`
	Count     int           `json:"count"`
	Triggered bool          `json:"triggered"`
	Message   string        `json:"message"`
}

type TickResult struct {
	Time      time.Time        `json:"time"`
	Evaluated int              `json:"evaluated"`
	Skipped   int              `json:"skipped"`
	Fired     []string         `json:"fired"`
	Errors    map[string]error `json:"-"`
}

func NewEngine(alerts AlertSource, data datasource.Source, notifier notify.Notifier, evaluator rules.Evaluator, opts Options) *Engine {
	opts = opts.withDefaults()
	e := &Engine{
		opts:       opts,
		enabled:    true,
		stopStats:  make(chan struct{}),
		alerts:     alerts,
		data:       data,
		notifier:   notifier,
		evaluator:  evaluator,
		dispatcher: worker.NewDispatcher(opts.Workers),
		fired:      make(map[string]string),
		quit:       make(chan struct{}),
		loopDone:   make(chan struct{}),
		Commands:   make(chan *rules.Command),
	}
	e.dispatcher.AddHandler(QUEUE_EVALUATE, e.handleEvaluate)
	go e.commandsLoop()
	return e
}

// Start schedules a tick every Options.Tick.
func (e *Engine) Start() error {
	e.Lock()
	defer e.Unlock()

	if e.running {
		return ErrRunning
	}

	logger := cronLogger{}
	e.cron = cron.New(
		cron.WithLocation(e.opts.Location),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	_, err := e.cron.AddFunc("@every "+e.opts.Tick.String(), func() {
		e.Tick(context.Background())
	})
	if err != nil {
		return err
	}

	e.dispatcher.Run()
	e.cron.Start()
	e.running = true
	slog.Info("alert scheduler started", "tick", e.opts.Tick.String(), "refire", e.opts.Refire)
	e.emitStats()
	return nil
}

// Stop ends future ticks and waits for running ticks to finish.
func (e *Engine) Stop() error {
	e.Lock()
	if !e.running {
		e.Unlock()
		return ErrNotRunning
	}
	c := e.cron
	e.running = false
	e.Unlock()

	<-c.Stop().Done()
	e.ticks.Wait()
	slog.Info("alert scheduler stopped")
	e.Lock()
	e.emitStats()
	e.Unlock()
	return nil
}

// Close stops the scheduler if needed, ends the command loop and releases
// the workers.
func (e *Engine) Close() {
	e.Stop()
	e.closeOnce.Do(func() { close(e.quit) })
	<-e.loopDone
	e.ticks.Wait()
	e.dispatcher.Close()
	e.Lock()
	defer e.Unlock()
	if e.stopStats != nil {
		close(e.stopStats)
		e.stopStats = nil
	}
}

func (e *Engine) Running() bool {
	e.Lock()
	defer e.Unlock()
	return e.running
}

func (e *Engine) Pause() {
	e.Lock()
	defer e.Unlock()
	e.enabled = false
	e.emitStats()
}

func (e *Engine) Resume() {
	e.Lock()
	defer e.Unlock()
	e.enabled = true
	e.emitStats()
}

func (e *Engine) OnStats(interval time.Duration, fn func(stats *EngineStats)) {
	e.Lock()
	e.onStats = fn
	e.emitStats() // emit first immediately
	stop := e.stopStats
	e.Unlock()

	ticker := time.NewTicker(interval) // then emit every interval
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.Lock()
				e.emitStats()
				e.Unlock()
			case <-stop:
				return
			}
		}
	}()
}

// Tick evaluates every active alert whose start time has passed today.
// Alerts are evaluated concurrently and fail independently.
func (e *Engine) Tick(ctx context.Context) *TickResult {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	now := e.opts.Clock().In(e.opts.Location)
	day := now.Format(dayLayout)
	res := &TickResult{
		Time:   now,
		Fired:  make([]string, 0),
		Errors: make(map[string]error),
	}

	e.Lock()
	enabled := e.enabled
	e.Unlock()
	if !enabled {
		slog.Debug("tick skipped, scheduler paused")
		return res
	}

	if r, ok := e.alerts.(refresher); ok && e.opts.Refresh {
		if err := r.Refresh(); err != nil {
			slog.Error("failed to refresh alerts, keeping current set", "err", err.Error())
		}
	}

	due := make([]*rules.AlertConfig, 0)
	for _, a := range e.alerts.All() {
		if !a.Active {
			continue
		}
		hour, minute, ok := parse.ParseClock(a.StartAt)
		if !ok {
			slog.Warn("invalid alert start time", "alertId", a.ID, "horaInicio", a.StartAt)
			res.Skipped++
			continue
		}
		if now.Hour() < hour || (now.Hour() == hour && now.Minute() < minute) {
			res.Skipped++
			continue
		}
		if e.opts.Refire == REFIRE_DAILY && e.firedOn(a.ID) == day {
			res.Skipped++
			continue
		}
		due = append(due, a)
	}

	results := make([]*CheckResult, len(due))
	jobs := make([]worker.Job, len(due))
	for i, a := range due {
		results[i] = &CheckResult{AlertID: a.ID}
		jobs[i] = worker.Job{
			Queue: QUEUE_EVALUATE,
			Args: worker.Args{
				"alert":  a,
				"result": results[i],
				"time":   now,
			},
		}
	}

	errs := e.dispatcher.RunBatch(ctx, jobs)
	for i, a := range due {
		res.Evaluated++
		if errs[i] != nil {
			res.Errors[a.ID] = errs[i]
			slog.Error("alert evaluation failed",
				"alertId", a.ID,
				"module", a.Module,
				"err", errs[i].Error(),
			)
			continue
		}
		if results[i].Triggered {
			res.Fired = append(res.Fired, a.ID)
			e.markFired(a.ID, day)
		}
	}

	e.Lock()
	e.lastTick = res
	e.Unlock()

	slog.Debug("tick done",
		"evaluated", res.Evaluated,
		"skipped", res.Skipped,
		"fired", len(res.Fired),
		"errors", len(res.Errors),
	)
	return res
}

// Check evaluates one alert right away, ignoring its start time and the
// re-fire policy. Nothing is notified.
func (e *Engine) Check(ctx context.Context, id string) (*CheckResult, error) {
	a, err := e.alerts.Get(id)
	if err != nil {
		return nil, err
	}
	return e.evaluate(ctx, a)
}

func (e *Engine) handleEvaluate(ctx context.Context, args worker.Args) error {
	a := args["alert"].(*rules.AlertConfig)
	out := args["result"].(*CheckResult)
	now, _ := args["time"].(time.Time)

	res, err := e.evaluate(ctx, a)
	if err != nil {
		return err
	}
	*out = *res
	if !res.Triggered {
		return nil
	}

	err = e.notifier.Notify(ctx, res.Message, a.Name, notify.Options{
		Level:   notify.LEVEL_WARNING,
		Timeout: notify.DEFAULT_TIMEOUT,
		AlertID: a.ID,
		Module:  a.Module,
		UserID:  a.UserID,
		Count:   res.Count,
		Time:    now,
	})
	if err != nil {
		slog.Error("alert notification failed", "alertId", a.ID, "err", err.Error())
	}
	return nil
}

// evaluate runs one alert bounded by the alert timeout, even when the data
// source ignores the context.
func (e *Engine) evaluate(ctx context.Context, a *rules.AlertConfig) (*CheckResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.AlertTimeout)
	defer cancel()

	type outcome struct {
		res *CheckResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("alert %s panicked: %v", a.ID, r)}
			}
		}()
		res, err := e.match(ctx, a)
		done <- outcome{res, err}
	}()

	select {
	case o := <-done:
		return o.res, o.err
	case <-ctx.Done():
		return nil, fmt.Errorf("alert %s: %w", a.ID, ctx.Err())
	}
}

func (e *Engine) match(ctx context.Context, a *rules.AlertConfig) (*CheckResult, error) {
	records, err := e.data.FetchRecords(ctx, a.Module)
	if err != nil {
		return nil, fmt.Errorf("fetch %s records: %w", a.Module, err)
	}

	matches := e.evaluator.FindAllMatches(a.RootRule, records, a.UserID)
	count := len(matches)
	triggered := rules.IsTriggered(count, a.Trigger)
	return &CheckResult{
		AlertID:   a.ID,
		Matches:   matches,
		Count:     count,
		Triggered: triggered,
		Message:   a.Notification(count),
	}, nil
}

func (e *Engine) firedOn(id string) string {
	e.Lock()
	defer e.Unlock()
	return e.fired[id]
}

func (e *Engine) markFired(id, day string) {
	e.Lock()
	defer e.Unlock()
	e.fired[id] = day
}

// must be called with the lock held
func (e *Engine) emitStats() {
	if e.onStats == nil {
		return
	}
	active := 0
	for _, a := range e.alerts.All() {
		if a.Active {
			active++
		}
	}
	stats := &EngineStats{
		EngineEnabled: e.enabled,
		Running:       e.running,
		Refire:        e.opts.Refire,
		ActiveAlerts:  active,
	}
	if e.lastTick != nil {
		stats.LastTick = e.lastTick.Time
		stats.LastFired = len(e.lastTick.Fired)
		stats.LastErrors = len(e.lastTick.Errors)
	}
	e.onStats(stats)
}

func (e *Engine) commandsLoop() {
	defer close(e.loopDone)
	for {
		var cmd *rules.Command
		select {
		case cmd = <-e.Commands:
		case <-e.quit:
			return
		}
		if cmd == nil {
			continue
		}
		e.handleCommand(cmd)
	}
}

func (e *Engine) handleCommand(cmd *rules.Command) {
	slog.Debug("command received", "topic", cmd.Topic)
	switch cmd.Topic {
	// reload alerts from the repository
	case rules.CmdReload:
		if r, ok := e.alerts.(reloader); ok {
			if err := r.Load(); err != nil {
				slog.Error("failed to reload alerts", "err", err.Error())
			}
		}
		e.Lock()
		e.emitStats()
		e.Unlock()
	case rules.CmdPause:
		e.Pause()
	case rules.CmdResume:
		e.Resume()
	case rules.CmdTick:
		e.ticks.Add(1)
		go func() {
			defer e.ticks.Done()
			e.Tick(context.Background())
		}()
	}
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron "+msg, append([]interface{}{"err", err.Error()}, keysAndValues...)...)
}
