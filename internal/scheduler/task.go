package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/servicehub-backend/internal/goroutine"
	"github.com/ignatzorin/servicehub-backend/internal/logger"
)

// ErrInvalidInterval возвращается Start для неположительного интервала.
var ErrInvalidInterval = errors.New("scheduler: интервал должен быть положительным")

// Job выполняется на каждом тике. Ошибка логируется, следующий тик повторит попытку.
type Job func(ctx context.Context) error

// Task запускает Job по таймеру и по явному Trigger.
// Одновременно выполняется не больше одного запуска.
type Task struct {
	name     string
	interval time.Duration
	job      Job
	log      *logrus.Entry

	inFlight atomic.Bool

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func NewTask(name string, interval time.Duration, job Job) *Task {
	return &Task{
		name:     name,
		interval: interval,
		job:      job,
		log:      logger.Component("scheduler").WithField("task", name),
	}
}

// Start запускает цикл тиков в фоне. Повторный вызов ничего не делает.
func (t *Task) Start(ctx context.Context) error {
	if t.interval <= 0 {
		return ErrInvalidInterval
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	t.running = true

	done := t.done
	goroutine.SafeGoWithContext(runCtx, "scheduler:"+t.name, func(ctx context.Context) {
		defer close(done)
		t.loop(ctx)
	})
	return nil
}

// Stop останавливает цикл и ждёт его завершения.
// Уже начатый запуск Job получает отменённый контекст.
func (t *Task) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	cancel, done := t.cancel, t.done
	t.running = false
	t.mu.Unlock()

	cancel()
	<-done
}

func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// InFlight сообщает, выполняется ли Job прямо сейчас.
func (t *Task) InFlight() bool {
	return t.inFlight.Load()
}

// Trigger синхронно выполняет Job, если она ещё не выполняется.
// Возвращает false, когда запуск пропущен.
func (t *Task) Trigger(ctx context.Context) bool {
	if !t.inFlight.CompareAndSwap(false, true) {
		return false
	}
	defer t.inFlight.Store(false)

	if err := t.job(ctx); err != nil && ctx.Err() == nil {
		t.log.WithError(err).Warn("task run failed")
	}
	return true
}

func (t *Task) loop(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.log.WithField("interval", t.interval.String()).Info("scheduler started")

	for {
		select {
		case <-ctx.Done():
			t.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			if !t.Trigger(ctx) {
				t.log.Debug("previous run still in flight, tick skipped")
			}
		}
	}
}
