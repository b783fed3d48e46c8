package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/flowershop/admin-api/internal/platform/mail"
)

func newTestTopic(t *testing.T) (*pstest.Server, *pubsub.Topic) {
	t.Helper()
	ctx := context.Background()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	topic, err := client.CreateTopic(ctx, "mail-outbox")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	t.Cleanup(topic.Stop)
	return srv, topic
}

func TestPubSubMailPublisherPublishesMessage(t *testing.T) {
	srv, topic := newTestTopic(t)

	publisher, err := NewPubSubMailPublisher(topic, "shop@example.com")
	if err != nil {
		t.Fatalf("NewPubSubMailPublisher: %v", err)
	}
	publisher.newID = func() string { return "mj_test" }
	publisher.now = func() time.Time { return time.Date(2025, 5, 6, 9, 0, 0, 0, time.UTC) }

	msg := mail.Message{To: "an@example.com", Subject: "New Account", HTML: "<p>hi</p>"}
	if err := publisher.SendMail(context.Background(), msg); err != nil {
		t.Fatalf("SendMail: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	var payload MailJob
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.JobID != "mj_test" || payload.To != msg.To || payload.Subject != msg.Subject || payload.From != "shop@example.com" {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if attr := messages[0].Attributes["jobId"]; attr != "mj_test" {
		t.Fatalf("expected jobId attribute, got %q", attr)
	}
}

func TestPubSubMailPublisherRejectsInvalidMessage(t *testing.T) {
	srv, topic := newTestTopic(t)
	publisher, err := NewPubSubMailPublisher(topic, "shop@example.com")
	if err != nil {
		t.Fatalf("NewPubSubMailPublisher: %v", err)
	}
	if err := publisher.SendMail(context.Background(), mail.Message{To: "nobody", Subject: "x", HTML: "y"}); err == nil {
		t.Fatal("expected validation error")
	}
	if n := len(srv.Messages()); n != 0 {
		t.Fatalf("expected no published messages, got %d", n)
	}
}
