package completion

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/servicehub-backend/internal/domain/entity"
	"github.com/ignatzorin/servicehub-backend/internal/domain/repository"
	"github.com/ignatzorin/servicehub-backend/internal/domain/valueobject"
	"github.com/ignatzorin/servicehub-backend/internal/logger"
)

// Prompt описывает запрос заказчику подтвердить выполнение одной брони.
type Prompt struct {
	BookingID   uuid.UUID `json:"booking_id"`
	ProviderID  uuid.UUID `json:"provider_id"`
	ServiceID   uuid.UUID `json:"service_id"`
	ActualPrice *float64  `json:"actual_price,omitempty"`
	ScheduledAt time.Time `json:"scheduled_at"`
	PresentedAt time.Time `json:"presented_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Location    string    `json:"location"`
	Notes       *string   `json:"notes,omitempty"`
}

type reconciler interface {
	ReconcileBooking(ctx context.Context, bookingID uuid.UUID) (*ReconcileResult, error)
}

type PollerOptions struct {
	// Cooldown задаёт минимальный интервал между сканированиями одного заказчика.
	Cooldown  time.Duration
	PromptTTL time.Duration
}

type consumerState struct {
	lastScan time.Time
	scanning bool
	prompt   *Prompt
}

// ConfirmationPoller ищет брони, ожидающие подтверждения заказчика,
// и показывает не больше одного запроса за раз.
type ConfirmationPoller struct {
	bookings   repository.BookingRepository
	reconciler reconciler
	suppressed SuppressionSet
	presenter  PromptPresenter
	active     ActiveConsumers
	opts       PollerOptions
	now        func() time.Time
	logger     *logrus.Entry

	mu     sync.Mutex
	states map[uuid.UUID]*consumerState
}

func NewConfirmationPoller(
	bookings repository.BookingRepository,
	reconciler reconciler,
	suppressed SuppressionSet,
	presenter PromptPresenter,
	active ActiveConsumers,
	opts PollerOptions,
) *ConfirmationPoller {
	if opts.PromptTTL <= 0 {
		opts.PromptTTL = 10 * time.Minute
	}

	return &ConfirmationPoller{
		bookings:   bookings,
		reconciler: reconciler,
		suppressed: suppressed,
		presenter:  presenter,
		active:     active,
		opts:       opts,
		now:        time.Now,
		logger:     logger.Component("confirmation_poller"),
		states:     make(map[uuid.UUID]*consumerState),
	}
}

// Scan ищет первую бронь заказчика, требующую подтверждения.
// Пока запрос открыт, возвращает его без нового сканирования.
// Возвращает nil, если показывать нечего или сканирование пропущено
// из-за cooldown либо параллельного запуска.
func (p *ConfirmationPoller) Scan(ctx context.Context, consumerID uuid.UUID) (*Prompt, error) {
	p.mu.Lock()
	now := p.now()
	st := p.stateLocked(consumerID)

	if st.prompt != nil {
		if now.Before(st.prompt.ExpiresAt) {
			open := *st.prompt
			p.mu.Unlock()
			return &open, nil
		}
		st.prompt = nil
	}
	if st.scanning || (!st.lastScan.IsZero() && now.Sub(st.lastScan) < p.opts.Cooldown) {
		p.mu.Unlock()
		return nil, nil
	}
	st.scanning = true
	st.lastScan = now
	p.mu.Unlock()

	prompt, err := p.findCandidate(ctx, consumerID)

	p.mu.Lock()
	st.scanning = false
	if err == nil && prompt != nil {
		st.prompt = prompt
	}
	p.mu.Unlock()

	if err != nil {
		p.logger.WithError(err).WithField("consumer_id", consumerID).Warn("confirmation scan aborted")
		return nil, err
	}
	if prompt == nil {
		return nil, nil
	}

	if p.presenter != nil {
		if err := p.presenter.PresentConfirmation(ctx, consumerID, *prompt); err != nil {
			p.logger.WithError(err).WithField("consumer_id", consumerID).Warn("confirmation prompt delivery failed")
		}
	}

	out := *prompt
	return &out, nil
}

// ScanConnected сканирует всех пользователей с открытым realtime-соединением.
// Используется как периодическая задача планировщика.
func (p *ConfirmationPoller) ScanConnected(ctx context.Context) error {
	if p.active == nil {
		return nil
	}

	for _, userID := range p.active.ConnectedUsers() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Ошибки уже залогированы в Scan, следующий тик повторит попытку.
		_, _ = p.Scan(ctx, userID)
	}

	p.prune()
	return nil
}

// Dismiss закрывает открытый запрос. Нулевой bookingID закрывает любой запрос.
// Возвращает true, если запрос был закрыт.
func (p *ConfirmationPoller) Dismiss(consumerID, bookingID uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, ok := p.states[consumerID]
	if !ok || st.prompt == nil {
		return false
	}
	if bookingID != uuid.Nil && st.prompt.BookingID != bookingID {
		return false
	}
	st.prompt = nil
	return true
}

// PromptOpen возвращает открытый и ещё не истёкший запрос заказчика.
func (p *ConfirmationPoller) PromptOpen(consumerID uuid.UUID) (*Prompt, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, ok := p.states[consumerID]
	if !ok || st.prompt == nil || !p.now().Before(st.prompt.ExpiresAt) {
		return nil, false
	}
	open := *st.prompt
	return &open, true
}

func (p *ConfirmationPoller) findCandidate(ctx context.Context, consumerID uuid.UUID) (*Prompt, error) {
	candidates, err := p.bookings.FindByConsumerAndStatus(ctx, consumerID, valueobject.BookingStatusPendingConfirmation)
	if err != nil {
		return nil, err
	}

	for _, candidate := range candidates {
		suppressed, err := p.suppressed.Contains(ctx, candidate.ID.String())
		if err != nil {
			return nil, err
		}
		if suppressed {
			continue
		}

		res, err := p.reconciler.ReconcileBooking(ctx, candidate.ID)
		if err != nil {
			return nil, err
		}
		if res.Repaired {
			p.logger.WithField("booking_id", candidate.ID).Info("stale pending_confirmation repaired during scan")
		}
		if res.Booking.Status != valueobject.BookingStatusPendingConfirmation {
			continue
		}

		return p.newPrompt(res.Booking), nil
	}

	return nil, nil
}

func (p *ConfirmationPoller) newPrompt(b *entity.Booking) *Prompt {
	now := p.now()
	prompt := &Prompt{
		BookingID:   b.ID,
		ProviderID:  b.ProviderID,
		ServiceID:   b.ServiceID,
		ScheduledAt: b.ScheduledAt,
		Location:    b.Location,
		Notes:       b.Notes,
		PresentedAt: now,
		ExpiresAt:   now.Add(p.opts.PromptTTL),
	}
	if b.ActualPrice != nil {
		amount := b.ActualPrice.Amount
		prompt.ActualPrice = &amount
	}
	return prompt
}

func (p *ConfirmationPoller) stateLocked(consumerID uuid.UUID) *consumerState {
	st, ok := p.states[consumerID]
	if !ok {
		st = &consumerState{}
		p.states[consumerID] = st
	}
	return st
}

// prune удаляет состояние заказчиков без открытого запроса,
// которые давно не сканировались.
func (p *ConfirmationPoller) prune() {
	p.mu.Lock()
	defer p.mu.Unlock()

	idle := p.opts.PromptTTL
	if c := 10 * p.opts.Cooldown; c > idle {
		idle = c
	}
	now := p.now()
	for id, st := range p.states {
		if st.scanning || st.prompt != nil {
			continue
		}
		if now.Sub(st.lastScan) > idle {
			delete(p.states, id)
		}
	}
}

func (p *ConfirmationPoller) trackedConsumers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.states)
}
