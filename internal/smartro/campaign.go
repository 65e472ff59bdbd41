package smartro

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/kiosko/devicectld/internal/device"
)

const campaignBudget = 30 * time.Second

const (
	mediumIC = '1'
	mediumRF = '3'
)

// CampaignOutcome is the terminal result of one payment-approval campaign.
type CampaignOutcome struct {
	Approval  ApprovalResult
	Cancelled bool
	Err       *device.Error
}

// Campaign runs one bounded, possibly-retrying job-B exchange (spec.md
// §4.2.5, restructured per §9's design note into named states rather than
// nested loops): SendB -> AwaitResponse -> Dispatch, looping through
// RetryAfter on a recoverable rejection, and stopping at TimeoutCancel once
// the budget elapses.
type Campaign struct {
	comm      *Comm
	req       ApprovalRequest
	cancelled atomic.Bool
}

func NewCampaign(comm *Comm, req ApprovalRequest) *Campaign {
	return &Campaign{comm: comm, req: req}
}

// Cancel marks the campaign cancelled. If a response arrives for this
// campaign's in-flight request after Cancel, Run discards it without
// returning a success/failure outcome.
func (c *Campaign) Cancel() {
	c.cancelled.Store(true)
}

// Run drives the campaign to completion. It never returns before either a
// terminal outcome is reached or the context is cancelled.
func (c *Campaign) Run(ctx context.Context) CampaignOutcome {
	start := time.Now()
	data := BuildPaymentApprovalData(c.req)

	for {
		if c.cancelled.Load() {
			return CampaignOutcome{Cancelled: true}
		}
		if time.Since(start) >= campaignBudget {
			return c.timeoutCancel(ctx)
		}

		frame, err := c.comm.Exchange(ctx, JobPaymentApproval, data)
		if c.cancelled.Load() {
			return CampaignOutcome{Cancelled: true}
		}
		if err != nil {
			if _, isTimeout := err.(HandshakeTimeout); isTimeout && time.Since(start) >= campaignBudget {
				return c.timeoutCancel(ctx)
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		result, err := ParseApprovalResult(frame.Data)
		if err != nil {
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if !result.Rejected() {
			return CampaignOutcome{Approval: result}
		}

		switch result.Medium {
		case mediumIC:
			return CampaignOutcome{Err: device.NewError(device.ErrRejectedWaitingRemoval, "IC card rejected; awaiting removal")}
		case mediumRF:
			time.Sleep(3 * time.Second)
		default:
			time.Sleep(500 * time.Millisecond)
		}
	}
}

// timeoutCancel forces the terminal out of its waiting state with a
// payment-wait (job E) frame, then reports USER_INACTIVITY_TIMEOUT.
func (c *Campaign) timeoutCancel(ctx context.Context) CampaignOutcome {
	c.comm.Exchange(ctx, JobPaymentWait, nil)
	return CampaignOutcome{Err: device.NewError(device.ErrUserInactivityTimeout, "no card presented within 30s")}
}
