package valueobject

import (
	"fmt"
	"math"

	"github.com/ignatzorin/servicehub-backend/internal/pkg/apperror"
)

const DefaultCurrency = "USD"

// Price хранит положительную сумму, округлённую до центов.
type Price struct {
	Amount   float64
	Currency string
}

func NewPrice(amount float64, currency string) (Price, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return Price{}, apperror.New(apperror.ErrCodeValidation, "цена должна быть положительной")
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return Price{Amount: math.Round(amount*100) / 100, Currency: currency}, nil
}

func (p Price) String() string {
	return fmt.Sprintf("%s %.2f", p.Currency, p.Amount)
}

// Rating хранит оценку отзыва от 1 до 5.
type Rating int

const (
	MinRating Rating = 1
	MaxRating Rating = 5
)

func NewRating(value int) (Rating, error) {
	r := Rating(value)
	if r < MinRating || r > MaxRating {
		return 0, apperror.ErrInvalidRating
	}
	return r, nil
}
