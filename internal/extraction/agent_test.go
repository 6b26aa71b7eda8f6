package extraction

import (
	"context"
	"errors"
	"time"

	"receiptly/internal/vision"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

type fakeResponse struct {
	text string
	err  error
}

// fakeClient replays a scripted sequence of responses and records every
// request it receives.
type fakeClient struct {
	responses []fakeResponse
	requests  []vision.Request
}

func (f *fakeClient) Generate(_ context.Context, req vision.Request) (string, error) {
	f.requests = append(f.requests, req)
	i := len(f.requests) - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	r := f.responses[i]
	return r.text, r.err
}

func (f *fakeClient) Close() error { return nil }

const validExtraction = `{
  "store_name": "Corner Grocer",
  "purchased_at": "2025-03-14 18:22:00",
  "total_amount": 31.49,
  "currency": "$",
  "items": [
    {"name": "Milk 2%", "price": 3.49, "quantity": 1, "category": {"name": "Dairy", "description": "Milk and cheese"}},
    {"name": "Apples", "price": 21.00, "quantity": 2.0, "category": {"name": "Produce", "description": "Fruit and vegetables"}},
    {"name": "Bread", "price": 7.00, "quantity": 1.37, "category": {"name": "Bakery", "description": "Baked goods"}}
  ]
}`

var _ = Describe("Agent", func() {
	var savedBackoff time.Duration

	BeforeEach(func() {
		savedBackoff = initialBackoff
		initialBackoff = time.Millisecond
	})

	AfterEach(func() {
		initialBackoff = savedBackoff
	})

	newAgent := func(c vision.Client) *Agent {
		return NewAgent(c, time.Second, zap.NewNop())
	}

	It("extracts the receipt and items from a clean response", func() {
		client := &fakeClient{responses: []fakeResponse{{text: validExtraction}}}
		receipt, items, err := newAgent(client).Extract(context.Background(), []byte("png"), nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(receipt.StoreName).To(Equal("Corner Grocer"))
		Expect(receipt.TotalAmount.StringFixed(2)).To(Equal("31.49"))
		Expect(receipt.PurchasedAt).NotTo(BeNil())
		Expect(receipt.PurchasedAt.Format("2006-01-02 15:04:05")).To(Equal("2025-03-14 18:22:00"))
		Expect(items).To(HaveLen(3))
	})

	It("derives integer quantity and unit price from a whole fractional quantity", func() {
		client := &fakeClient{responses: []fakeResponse{{text: validExtraction}}}
		_, items, err := newAgent(client).Extract(context.Background(), []byte("png"), nil)

		Expect(err).NotTo(HaveOccurred())
		apples := items[1]
		Expect(apples.Quantity).To(Equal(2))
		Expect(apples.TotalPrice.StringFixed(2)).To(Equal("21.00"))
		Expect(apples.UnitPrice.StringFixed(2)).To(Equal("10.50"))
	})

	It("collapses non-whole quantities to one with the reported price as total", func() {
		client := &fakeClient{responses: []fakeResponse{{text: validExtraction}}}
		_, items, err := newAgent(client).Extract(context.Background(), []byte("png"), nil)

		Expect(err).NotTo(HaveOccurred())
		bread := items[2]
		Expect(bread.Quantity).To(Equal(1))
		Expect(bread.UnitPrice.StringFixed(2)).To(Equal("7.00"))
		Expect(bread.TotalPrice.StringFixed(2)).To(Equal("7.00"))
	})

	It("strips markdown fences around the JSON payload", func() {
		client := &fakeClient{responses: []fakeResponse{{text: "```json\n" + validExtraction + "\n```"}}}
		receipt, _, err := newAgent(client).Extract(context.Background(), []byte("png"), nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(receipt.StoreName).To(Equal("Corner Grocer"))
	})

	It("retries transient failures and eventually succeeds", func() {
		transient := vision.Transient(errors.New("503 service unavailable"))
		client := &fakeClient{responses: []fakeResponse{
			{err: transient},
			{err: transient},
			{err: transient},
			{text: validExtraction},
		}}

		receipt, _, err := newAgent(client).Extract(context.Background(), []byte("png"), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(receipt).NotTo(BeNil())
		Expect(client.requests).To(HaveLen(4))
	})

	It("gives up with a transient failure once retries are exhausted", func() {
		transient := vision.Transient(errors.New("429 too many requests"))
		client := &fakeClient{responses: []fakeResponse{{err: transient}}}

		_, _, err := newAgent(client).Extract(context.Background(), []byte("png"), nil)
		Expect(err).To(HaveOccurred())
		Expect(KindOf(err)).To(Equal(KindTransientFailure))
		Expect(client.requests).To(HaveLen(4))
	})

	It("fails immediately on a non-transient transport error", func() {
		client := &fakeClient{responses: []fakeResponse{{err: errors.New("401 unauthorized")}}}

		_, _, err := newAgent(client).Extract(context.Background(), []byte("png"), nil)
		Expect(err).To(HaveOccurred())
		Expect(KindOf(err)).To(Equal(KindFatalFailure))
		Expect(client.requests).To(HaveLen(1))
	})

	It("retries malformed responses and reports a validation failure when they persist", func() {
		client := &fakeClient{responses: []fakeResponse{{text: "sorry, I cannot read this image"}}}

		_, _, err := newAgent(client).Extract(context.Background(), []byte("png"), nil)
		Expect(err).To(HaveOccurred())
		Expect(KindOf(err)).To(Equal(KindValidationFailure))
		Expect(client.requests).To(HaveLen(4))
	})

	It("rejects a response without a total amount", func() {
		client := &fakeClient{responses: []fakeResponse{
			{text: `{"store_name": "Corner Grocer", "currency": "USD", "items": []}`},
		}}

		_, _, err := newAgent(client).Extract(context.Background(), []byte("png"), nil)
		Expect(err).To(HaveOccurred())
		Expect(KindOf(err)).To(Equal(KindValidationFailure))
	})

	It("rejects a response without a store name", func() {
		client := &fakeClient{responses: []fakeResponse{
			{text: `{"store_name": "  ", "total_amount": 5, "currency": "USD", "items": []}`},
		}}

		_, _, err := newAgent(client).Extract(context.Background(), []byte("png"), nil)
		Expect(err).To(HaveOccurred())
		Expect(KindOf(err)).To(Equal(KindValidationFailure))
	})

	It("keeps the receipt but drops an unparseable purchase date", func() {
		client := &fakeClient{responses: []fakeResponse{
			{text: `{"store_name": "Corner Grocer", "purchased_at": "last tuesday", "total_amount": 5.00, "currency": "USD", "items": []}`},
		}}

		receipt, _, err := newAgent(client).Extract(context.Background(), []byte("png"), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(receipt.PurchasedAt).To(BeNil())
	})

	It("lists existing categories in the prompt", func() {
		client := &fakeClient{responses: []fakeResponse{{text: validExtraction}}}
		existing := []CategoryCandidate{{Name: "Dairy", Description: "Milk and cheese"}}

		_, _, err := newAgent(client).Extract(context.Background(), []byte("png"), existing)
		Expect(err).NotTo(HaveOccurred())
		Expect(client.requests[0].Prompt).To(ContainSubstring("Dairy"))
	})
})

var _ = Describe("deriveItemAmounts", func() {
	It("rounds the reported price to two decimals", func() {
		qty, unit, total := deriveItemAmounts(10.999, nil)
		Expect(qty).To(Equal(1))
		Expect(total.StringFixed(2)).To(Equal("11.00"))
		Expect(unit.Equal(total)).To(BeTrue())
	})

	It("splits the total across a whole quantity", func() {
		three := 3.0
		qty, unit, total := deriveItemAmounts(10.00, &three)
		Expect(qty).To(Equal(3))
		Expect(unit.StringFixed(2)).To(Equal("3.33"))
		Expect(total.StringFixed(2)).To(Equal("10.00"))
	})

	It("ignores zero and negative quantities", func() {
		zero := 0.0
		qty, _, _ := deriveItemAmounts(4.20, &zero)
		Expect(qty).To(Equal(1))
	})
})

var _ = Describe("extractJSON", func() {
	It("finds an object inside surrounding chatter", func() {
		out, err := extractJSON("Here you go:\n{\"a\": 1}\nHope that helps!", '{', '}')
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(`{"a": 1}`))
	})

	It("fails with a validation error when no payload is present", func() {
		_, err := extractJSON("I could not read the receipt.", '[', ']')
		Expect(err).To(HaveOccurred())
		Expect(KindOf(err)).To(Equal(KindValidationFailure))
	})
})
