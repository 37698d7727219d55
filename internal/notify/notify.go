// Package notify fans a blood request out to matching donors by email.
package notify

import (
	"context"
	"fmt"
	"time"

	"lifedrop/pkg/types"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers one message. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Archiver stores the report of a finished batch.
type Archiver interface {
	Store(ctx context.Context, report *Report) error
}

type Recipient struct {
	UserID string
	Name   string
	Email  string
}

type Details struct {
	RequestID      string
	RequesterName  string
	BloodGroup     types.BloodGroup
	Units          int
	City           string
	State          string
	Hospital       string
	ContactNumber  string
	ContactEmail   string
	Urgency        types.Urgency
	AdditionalInfo string
}

type Outcome struct {
	Recipient Recipient
	Err       error
}

// Result aggregates one batch. SentCount is the number of intended
// recipients and Delivered is SentCount minus Failed.
type Result struct {
	SentCount int
	Delivered int
	Failed    int
	Outcomes  []Outcome
}

// AllDelivered reports whether at least one message went out and none failed.
func (r Result) AllDelivered() bool {
	return r.SentCount > 0 && r.Failed == 0
}

type Dispatcher struct {
	logger  logrus.FieldLogger
	sender  Sender
	archive Archiver
	limit   int
	live    bool
	now     func() time.Time
}

type Option func(*Dispatcher)

func WithConcurrency(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.limit = n
		}
	}
}

func WithArchive(a Archiver) Option {
	return func(d *Dispatcher) {
		d.archive = a
	}
}

func NewDispatcher(logger logrus.FieldLogger, sender Sender, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		logger: logger,
		sender: sender,
		limit:  defaultConcurrency,
		now:    time.Now,
	}
	if _, ok := sender.(*LogSender); !ok {
		d.live = true
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Configured reports whether messages leave the process.
func (d *Dispatcher) Configured() bool {
	return d.live
}

// Notify sends one message per recipient concurrently and waits for all of
// them. A failed send never cancels its siblings.
func (d *Dispatcher) Notify(ctx context.Context, recipients []Recipient, details Details) Result {
	result := Result{SentCount: len(recipients)}
	if len(recipients) == 0 {
		return result
	}

	log := d.logger.WithFields(logrus.Fields{
		"request_id":  details.RequestID,
		"blood_group": details.BloodGroup,
		"recipients":  len(recipients),
	})

	body, err := renderRequestEmail(details)
	if err != nil {
		log.WithError(err).Error("failed to render notification email")
		result.Failed = len(recipients)
		result.Outcomes = make([]Outcome, len(recipients))
		for i, rcpt := range recipients {
			result.Outcomes[i] = Outcome{Recipient: rcpt, Err: err}
		}
		d.store(ctx, details, result)
		return result
	}
	subject := requestSubject(details.BloodGroup)

	outcomes := make([]Outcome, len(recipients))

	var g errgroup.Group
	g.SetLimit(d.limit)
	for i, rcpt := range recipients {
		g.Go(func() error {
			outcomes[i] = Outcome{Recipient: rcpt, Err: d.send(ctx, Message{
				To:      rcpt.Email,
				Subject: subject,
				HTML:    body,
			})}
			return nil
		})
	}
	_ = g.Wait()

	for _, outcome := range outcomes {
		if outcome.Err != nil {
			result.Failed++
			log.WithError(outcome.Err).WithField("user_id", outcome.Recipient.UserID).Warn("failed to send notification")
		}
	}
	result.Delivered = result.SentCount - result.Failed
	result.Outcomes = outcomes

	log.WithFields(logrus.Fields{
		"delivered": result.Delivered,
		"failed":    result.Failed,
	}).Info("notification batch finished")

	d.store(ctx, details, result)

	return result
}

func (d *Dispatcher) send(ctx context.Context, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sender panicked: %v", r)
		}
	}()

	if err := d.sender.Send(ctx, msg); err != nil {
		return &types.DependencyError{Op: "send notification", Err: err}
	}
	return nil
}

func (d *Dispatcher) store(ctx context.Context, details Details, result Result) {
	if d.archive == nil {
		return
	}

	report := newReport(details, result, d.now())
	if err := d.archive.Store(ctx, report); err != nil {
		d.logger.WithError(err).WithField("request_id", details.RequestID).Warn("failed to archive notification report")
	}
}
