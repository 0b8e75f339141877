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

package reembed

import (
	"context"
	"log/slog"
	"time"
)

// maxBackoff caps the doubling delay between attempts.
const maxBackoff = 30 * time.Second

// RetryWithBackoff calls operation up to maxAttempts times, sleeping
// baseDelay after the first failure and doubling the sleep after each
// further one, up to maxBackoff. It returns nil on the first success, the
// last operation error when the budget runs out, or ctx's error if ctx ends
// first.
func RetryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var err error
	for attempt, delay := 1, baseDelay; ; attempt, delay = attempt+1, min(2*delay, maxBackoff) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err = operation(); err == nil {
			if attempt > 1 {
				slog.Debug("retry succeeded", "attempt", attempt)
			}
			return nil
		}
		if attempt == maxAttempts {
			return err
		}

		slog.Debug("attempt failed", "attempt", attempt, "of", maxAttempts, "backoff", delay, "err", err)
		if ctxErr := sleep(ctx, delay); ctxErr != nil {
			return ctxErr
		}
	}
}

// sleep waits for d or until ctx ends, whichever is first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
