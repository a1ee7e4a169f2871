// Package app drives the tracker: frames flow from a hand.Source through
// the pinch engine and posture classifier into the session orchestrator.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/hand"
	"github.com/ayusman/mudra/internal/pinch"
	"github.com/ayusman/mudra/internal/posture"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/pkg/logger"
	"github.com/ayusman/mudra/pkg/metrics"
)

// SubscriberBuffer is the number of updates queued per subscriber before
// new ones are dropped.
const SubscriberBuffer = 64

// Settings persists tuning values between runs.
type Settings interface {
	GetFloat(ctx context.Context, key string) (float64, error)
	SetFloat(ctx context.Context, key string, v float64) error
}

// Config holds configuration options for the application.
type Config struct {
	Pinch   pinch.Config
	Posture posture.Config
	Tasks   []session.Task

	// DistanceStrength replaces tracker strengths with values derived
	// from thumb-to-fingertip distances.
	DistanceStrength bool
	DistanceMin      float64
	DistanceMax      float64

	Records  session.RecordStore
	Settings Settings // optional
	Logger   logger.Logger
	Metrics  *metrics.Manager
	Clock    func() time.Time
}

// PostureChange reports a new posture label on one hand.
type PostureChange struct {
	Side  hand.Side     `json:"side"`
	Label posture.Label `json:"label"`
}

// Update is everything one frame produced.
type Update struct {
	Seq      uint64           `json:"seq"`
	Pinch    []pinch.Event    `json:"-"`
	Postures []PostureChange  `json:"postures,omitempty"`
	Notices  []session.Notice `json:"-"`
	Status   session.Status   `json:"status"`
}

// App is the main application that ties the per-frame components together.
// All methods are safe for concurrent use.
type App struct {
	config     Config
	log        logger.Logger
	metrics    *metrics.Manager
	engine     *pinch.Engine
	classifier *posture.Classifier
	orch       *session.Orchestrator

	mu      sync.Mutex
	seq     uint64
	subs    map[int]chan Update
	nextSub int
}

// New creates a new App. A calibrated reference hand length stored in the
// settings replaces the configured one.
func New(ctx context.Context, config Config) (*App, error) {
	if config.Records == nil {
		return nil, errors.New("app: a record store is required")
	}
	log := config.Logger
	if log == nil {
		log = logger.Nop()
	}
	log = log.Named("app")

	if config.Settings != nil {
		ref, err := config.Settings.GetFloat(ctx, store.SettingReferenceHandLength)
		switch {
		case err == nil && ref > 0:
			config.Posture.ReferenceHandLength = ref
			log.Info(ctx, "using calibrated reference hand length", logger.Float64("length", ref))
		case err != nil && !errors.Is(err, store.ErrNotFound):
			log.Warn(ctx, "failed to read calibration", logger.Error(err))
		}
	}

	engine, err := pinch.NewEngine(config.Pinch)
	if err != nil {
		return nil, err
	}
	classifier, err := posture.NewClassifier(config.Posture)
	if err != nil {
		return nil, err
	}

	a := &App{
		config:     config,
		log:        log,
		metrics:    config.Metrics,
		engine:     engine,
		classifier: classifier,
		subs:       make(map[int]chan Update),
	}

	var opts []session.Option
	if config.Clock != nil {
		opts = append(opts, session.WithClock(config.Clock))
	}
	a.orch, err = session.New(config.Tasks, engine, a, config.Records, opts...)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Label implements session.PostureReader over the current classifier.
// Callers hold a.mu.
func (a *App) Label(side hand.Side) posture.Label {
	return a.classifier.Label(side)
}

// StartSession begins a new session, discarding any in progress.
func (a *App) StartSession(ctx context.Context) []session.Notice {
	a.mu.Lock()
	notices := a.orch.StartSession(ctx)
	if err := a.orch.LoadError(); err != nil {
		a.log.Warn(ctx, "previous session unreadable, treating as first session", logger.Error(err))
	}
	a.metrics.RecordSessionStarted()
	if a.orch.State() == session.StateSessionComplete {
		a.metrics.RecordSessionCompleted()
	}
	a.log.Info(ctx, "session started", logger.Int("tasks", len(a.config.Tasks)))
	a.publishLocked(Update{Notices: notices, Status: a.orch.Status()})
	a.mu.Unlock()
	return notices
}

// Tick processes one frame. The returned error is a failed save of a
// finished session; the frame itself has been applied.
func (a *App) Tick(ctx context.Context, frame hand.Frame) (Update, error) {
	start := time.Now()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.config.DistanceStrength {
		for s := range frame.Hands {
			hand.FillDistanceStrengths(&frame.Hands[s], a.config.DistanceMin, a.config.DistanceMax)
		}
	}

	var up Update
	var err error
	up.Pinch, err = a.engine.ObserveFrame(&frame)
	if err != nil {
		return Update{}, fmt.Errorf("observe frame: %w", err)
	}

	tracked := 0
	for _, side := range []hand.Side{hand.Left, hand.Right} {
		r := frame.Hand(side)
		if r.Tracked {
			tracked++
		}
		label, changed, err := a.classifier.Classify(side, r)
		if err != nil {
			return Update{}, fmt.Errorf("classify %s: %w", side, err)
		}
		if changed {
			up.Postures = append(up.Postures, PostureChange{Side: side, Label: label})
			a.metrics.RecordPostureChange(side.String(), label.String())
		}
	}

	up.Notices, err = a.orch.Tick(ctx, frame.Elapsed)
	up.Status = a.orch.Status()

	for _, ev := range up.Pinch {
		a.metrics.RecordPinchEvent(ev.Kind.String(), ev.Side.String())
	}
	a.observeNotices(ctx, up.Notices)
	if err != nil {
		a.log.Error(ctx, "failed to save session", logger.Error(err))
	}
	a.metrics.ObserveFrame(time.Since(start), tracked)

	a.publishLocked(up)
	return up, err
}

func (a *App) observeNotices(ctx context.Context, notices []session.Notice) {
	for _, n := range notices {
		switch n.Kind {
		case session.NoticeTaskStarted:
			a.log.Info(ctx, "task started", logger.Int("index", n.TaskIndex), logger.String("task", n.Task))
		case session.NoticeRepCompleted:
			kind := ""
			if n.TaskIndex >= 0 && n.TaskIndex < len(a.config.Tasks) {
				kind = a.config.Tasks[n.TaskIndex].Kind.String()
			}
			a.metrics.RecordRepCompleted(kind)
			a.log.Debug(ctx, "rep completed", logger.String("task", n.Task), logger.Int("rep", n.Rep))
		case session.NoticeTaskCompleted:
			a.log.Info(ctx, "task completed", logger.String("task", n.Task))
		case session.NoticeSessionCompleted:
			a.metrics.RecordSessionCompleted()
			a.log.Info(ctx, "session completed")
		case session.NoticeSaveFailed:
			a.metrics.RecordSaveError()
		}
	}
}

// RetrySave re-attempts to persist a session whose save failed.
func (a *App) RetrySave(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.orch.RetrySave(ctx); err != nil {
		a.metrics.RecordSaveError()
		return err
	}
	a.metrics.RecordSessionCompleted()
	a.publishLocked(Update{Status: a.orch.Status()})
	return nil
}

// Status returns the orchestrator progress.
func (a *App) Status() session.Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.orch.Status()
}

// Report returns the comparison of the finished session.
func (a *App) Report() (session.Report, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.orch.Report()
}

// Record returns the current or last finished session, or nil.
func (a *App) Record() *session.Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.orch.Record()
}

// Previous returns the record loaded when the session started, or nil.
func (a *App) Previous() *session.Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.orch.Previous()
}

// Tasks returns the configured task sequence.
func (a *App) Tasks() []session.Task {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.orch.Tasks()
}

// HandState is the live per-hand readout.
type HandState struct {
	Side        hand.Side                `json:"side"`
	Strengths   [hand.NumFingers]float64 `json:"strengths"`
	Posture     posture.Label            `json:"posture"`
	Measurement posture.Measurement      `json:"measurement"`
}

// Hands returns the smoothed strengths and posture geometry of both hands.
func (a *App) Hands() [hand.NumSides]HandState {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out [hand.NumSides]HandState
	for _, side := range []hand.Side{hand.Left, hand.Right} {
		out[side] = HandState{
			Side:        side,
			Strengths:   a.engine.Strengths(side),
			Posture:     a.classifier.Label(side),
			Measurement: a.classifier.Measurement(side),
		}
	}
	return out
}

// Calibrate derives the reference hand length from samples, stores it when
// settings are configured and then applies it to the classifier. Nothing
// changes when the store fails.
func (a *App) Calibrate(ctx context.Context, samples []hand.Skeleton) (posture.Calibration, error) {
	cal, err := posture.Calibrate(samples)
	if err != nil {
		return posture.Calibration{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	cfg := cal.Apply(a.classifier.Config())
	if err := cfg.Validate(); err != nil {
		return posture.Calibration{}, err
	}
	if a.config.Settings != nil {
		if err := a.config.Settings.SetFloat(ctx, store.SettingReferenceHandLength, cal.ReferenceHandLength); err != nil {
			return posture.Calibration{}, fmt.Errorf("store calibration: %w", err)
		}
	}
	if err := a.classifier.SetConfig(cfg); err != nil {
		return posture.Calibration{}, err
	}
	a.config.Posture = cfg
	a.log.Info(ctx, "calibrated",
		logger.Float64("reference_hand_length", cal.ReferenceHandLength),
		logger.Int("samples", cal.Samples),
		logger.Int("skipped", cal.Skipped))
	return cal, nil
}

// Subscribe registers for per-frame updates. Updates are dropped for a
// subscriber whose buffer is full. The returned func unsubscribes.
func (a *App) Subscribe() (<-chan Update, func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextSub
	a.nextSub++
	ch := make(chan Update, SubscriberBuffer)
	a.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.mu.Lock()
			defer a.mu.Unlock()
			delete(a.subs, id)
			close(ch)
		})
	}
}

// publishLocked fans up out to subscribers. Callers hold a.mu.
func (a *App) publishLocked(up Update) {
	a.seq++
	up.Seq = a.seq
	for _, ch := range a.subs {
		select {
		case ch <- up:
		default:
		}
	}
}
