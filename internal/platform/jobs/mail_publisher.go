package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/oklog/ulid/v2"

	"github.com/flowershop/admin-api/internal/platform/mail"
)

// MailJob is the payload consumed by the mail worker.
type MailJob struct {
	JobID    string    `json:"jobId"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Subject  string    `json:"subject"`
	HTML     string    `json:"html"`
	QueuedAt time.Time `json:"queuedAt"`
}

// PubSubMailPublisher satisfies mail.Sender by enqueueing messages on a Pub/Sub topic.
// SendMail returns once the broker acknowledged the publish.
type PubSubMailPublisher struct {
	topic   *pubsub.Topic
	from    string
	marshal func(any) ([]byte, error)
	newID   func() string
	now     func() time.Time
}

// NewPubSubMailPublisher constructs a Pub/Sub backed mail sender.
func NewPubSubMailPublisher(topic *pubsub.Topic, from string) (*PubSubMailPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub mail publisher: topic is required")
	}
	return &PubSubMailPublisher{
		topic:   topic,
		from:    strings.TrimSpace(from),
		marshal: json.Marshal,
		newID:   func() string { return "mj_" + strings.ToLower(ulid.Make().String()) },
		now:     time.Now,
	}, nil
}

// SendMail publishes msg and waits for the server-assigned message id.
func (p *PubSubMailPublisher) SendMail(ctx context.Context, msg mail.Message) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub mail publisher: not initialised")
	}
	if err := msg.Validate(); err != nil {
		return err
	}

	job := MailJob{
		JobID:    p.newID(),
		From:     p.from,
		To:       strings.TrimSpace(msg.To),
		Subject:  msg.Subject,
		HTML:     msg.HTML,
		QueuedAt: p.now().UTC(),
	}
	data, err := p.marshal(job)
	if err != nil {
		return fmt.Errorf("marshal mail job: %w", err)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"jobId": job.JobID,
			"kind":  "mail",
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish mail job: %w", err)
	}
	return nil
}
