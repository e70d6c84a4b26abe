package email

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// ThrottledSender caps the outbound rate of the wrapped sender. It is shared
// by every dispatch run in the process, so concurrent runs together stay
// under the relay limit.
type ThrottledSender struct {
	next    Sender
	limiter *rate.Limiter
}

func NewThrottledSender(next Sender, perSecond int) *ThrottledSender {
	if perSecond <= 0 {
		perSecond = 1
	}
	return &ThrottledSender{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

func (s *ThrottledSender) Send(ctx context.Context, msg Message) (Receipt, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return Receipt{}, fmt.Errorf("throttle: %w", err)
	}
	return s.next.Send(ctx, msg)
}
