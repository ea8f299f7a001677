// Package jitter добавляет случайность в интервалы повторов (backoff),
// чтобы повторные попытки разных воркеров не совпадали по времени.
package jitter

import (
	"math/rand/v2"
	"time"
)

// DefaultJitter — стандартный коэффициент джиттера (50%)
const DefaultJitter = 0.5

// Duration возвращает d с джиттером в диапазоне [d, d*(1+factor)].
func Duration(d time.Duration, factor float64) time.Duration {
	return durationFrom(d, factor, rand.Float64())
}

func durationFrom(d time.Duration, factor, r float64) time.Duration {
	if factor <= 0 || d <= 0 {
		return d
	}

	return d + time.Duration(r*factor*float64(d))
}

// ExponentialBackoff считает задержку для попытки attempt (с нуля): base*2^attempt,
// ограниченную max, плюс джиттер.
func ExponentialBackoff(base, max time.Duration, attempt int, factor float64) time.Duration {
	return Duration(capped(base, max, attempt), factor)
}

func capped(base, max time.Duration, attempt int) time.Duration {
	backoff := base
	for i := 0; i < attempt; i++ {
		backoff *= 2
		if backoff >= max || backoff <= 0 {
			return max
		}
	}

	if backoff > max {
		return max
	}

	return backoff
}
