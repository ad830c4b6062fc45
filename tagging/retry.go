// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package tagging

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// RetryWithBackoff retries a tagging backend call with exponential backoff.
// Only transient failures are retried. A parse failure is terminal here:
// the backend already re-prompts on malformed responses internally, so
// repeating the whole call would multiply chat completions without adding
// information. Context cancellation aborts both between attempts and
// during backoff.
func RetryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	delay := baseDelay
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("backend call recovered", "attempt", attempt)
			}
			return nil
		}
		if errors.Is(lastErr, ErrParseFailed) {
			return lastErr
		}
		if attempt == maxAttempts {
			break
		}

		slog.Debug("backend call failed, backing off",
			"attempt", attempt, "max_attempts", maxAttempts, "delay", delay, "err", lastErr)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}

	return lastErr
}
