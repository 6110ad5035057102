package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	amqp "github.com/rabbitmq/amqp091-go"
)

// publishTagRead publishes a raw payload on the ingest queue the consumer
// listens on.
func publishTagRead(ctx context.Context, payload []byte) error {
	return mqChannel.PublishWithContext(
		ctx,
		"",
		ingestQueueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	)
}

// listTagIDs fetches the most recent events and returns their tag IDs.
func listTagIDs(limit int) []string {
	resp, err := http.Get(fmt.Sprintf("%s/data?limit=%d", baseURL, limit))
	Expect(err).NotTo(HaveOccurred())
	defer func() { _ = resp.Body.Close() }()

	var events []struct {
		TagID string `json:"tagId"`
	}
	Expect(json.NewDecoder(resp.Body).Decode(&events)).To(Succeed())

	ids := make([]string, len(events))
	for i, event := range events {
		ids[i] = event.TagID
	}
	return ids
}

var _ = Describe("Consumer E2E", func() {
	It("should persist a tag read published on the ingest queue", func() {
		ctx := context.Background()
		tagID := fmt.Sprintf("MQ%d", time.Now().UnixNano()%10000000)

		payload := fmt.Sprintf(`{"tagId":%q,"status":"detected","timestamp":%q}`,
			tagID, time.Now().UTC().Format(time.RFC3339))

		Expect(publishTagRead(ctx, []byte(payload))).To(Succeed())

		Eventually(func() []string {
			return listTagIDs(50)
		}, 10*time.Second, 500*time.Millisecond).Should(ContainElement(tagID))
	})

	It("should accept the legacy rfid_tag key on the queue", func() {
		ctx := context.Background()
		tagID := fmt.Sprintf("LG%d", time.Now().UnixNano()%10000000)

		payload := fmt.Sprintf(`{"rfid_tag":%q,"status":"detected"}`, tagID)

		Expect(publishTagRead(ctx, []byte(payload))).To(Succeed())

		Eventually(func() []string {
			return listTagIDs(50)
		}, 10*time.Second, 500*time.Millisecond).Should(ContainElement(tagID))
	})

	It("should drop malformed payloads without stalling the queue", func() {
		ctx := context.Background()

		Expect(publishTagRead(ctx, []byte("not json"))).To(Succeed())

		// A valid read published afterwards still gets through.
		tagID := fmt.Sprintf("OK%d", time.Now().UnixNano()%10000000)
		payload := fmt.Sprintf(`{"tagId":%q,"status":"detected"}`, tagID)
		Expect(publishTagRead(ctx, []byte(payload))).To(Succeed())

		Eventually(func() []string {
			return listTagIDs(50)
		}, 10*time.Second, 500*time.Millisecond).Should(ContainElement(tagID))
	})

	It("should drop reads missing required fields", func() {
		ctx := context.Background()

		Expect(publishTagRead(ctx, []byte(`{"status":"detected"}`))).To(Succeed())

		tagID := fmt.Sprintf("VL%d", time.Now().UnixNano()%10000000)
		payload := fmt.Sprintf(`{"tagId":%q,"status":"absent"}`, tagID)
		Expect(publishTagRead(ctx, []byte(payload))).To(Succeed())

		Eventually(func() []string {
			return listTagIDs(50)
		}, 10*time.Second, 500*time.Millisecond).Should(ContainElement(tagID))
	})
})
