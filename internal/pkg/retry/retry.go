// Package retry настраивает повторы поверх avast/retry-go.
package retry

import (
	"context"
	"time"

	retrygo "github.com/avast/retry-go/v4"
)

// Strategy описывает ограниченное число повторов с линейной задержкой:
// перед попыткой N (начиная со второй) ждём Delay*(N-1).
type Strategy struct {
	Attempts int
	Delay    time.Duration
}

// Do вызывает fn, пока она не вернёт nil или не закончатся попытки.
// Возвращает последнюю ошибку fn либо ошибку контекста.
func (s Strategy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := s.Attempts
	if attempts < 1 {
		// retry-go трактует 0 как бесконечные повторы.
		attempts = 1
	}

	waits := 0
	return retrygo.Do(
		func() error { return fn(ctx) },
		retrygo.Context(ctx),
		retrygo.Attempts(uint(attempts)),
		retrygo.DelayType(func(uint, error, *retrygo.Config) time.Duration {
			waits++
			return s.backoff(waits)
		}),
		retrygo.LastErrorOnly(true),
	)
}

// backoff возвращает задержку перед повтором с номером retry (с единицы).
func (s Strategy) backoff(retry int) time.Duration {
	return s.Delay * time.Duration(retry)
}
