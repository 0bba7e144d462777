package valueobject

import "github.com/ignatzorin/servicehub-backend/internal/pkg/apperror"

type BookingStatus string

const (
	BookingStatusPending             BookingStatus = "pending"
	BookingStatusConfirmed           BookingStatus = "confirmed"
	BookingStatusPendingConfirmation BookingStatus = "pending_confirmation"
	BookingStatusCompleted           BookingStatus = "completed"
	BookingStatusCancelled           BookingStatus = "cancelled"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:             {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed:           {BookingStatusPendingConfirmation, BookingStatusCancelled},
	BookingStatusPendingConfirmation: {BookingStatusCompleted, BookingStatusCancelled},
	BookingStatusCompleted:           {},
	BookingStatusCancelled:           {},
}

func (s BookingStatus) IsValid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

// IsTerminal сообщает, что из статуса нет переходов.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

func (s BookingStatus) CanTransitionTo(newStatus BookingStatus) bool {
	for _, status := range bookingTransitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

func (s BookingStatus) String() string {
	return string(s)
}

func NewBookingStatus(status string) (BookingStatus, error) {
	s := BookingStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус бронирования")
	}
	return s, nil
}
