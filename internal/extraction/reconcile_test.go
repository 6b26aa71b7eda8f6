package extraction

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var _ = Describe("Reconciler", func() {
	var (
		savedBackoff time.Duration
		receiptPNG   []byte
	)

	BeforeEach(func() {
		savedBackoff = initialBackoff
		initialBackoff = time.Millisecond
		receiptPNG = encodePNG(200, 300)
	})

	AfterEach(func() {
		initialBackoff = savedBackoff
	})

	newReconciler := func(c *fakeClient) *Reconciler {
		return NewReconciler(c, time.Second, zap.NewNop())
	}

	items := []LineItem{
		{ID: "a", Name: "Milk", Quantity: 1, UnitPrice: money("3.49"), TotalPrice: money("3.49"), Currency: "USD"},
		{ID: "b", Name: "Apples", Quantity: 2, UnitPrice: money("10.50"), TotalPrice: money("21.00"), Currency: "USD"},
		{ID: "c", Name: "Duplicate scan", Quantity: 1, UnitPrice: money("7.00"), TotalPrice: money("7.00"), Currency: "USD"},
	}

	It("skips the model entirely when the sum already matches", func() {
		client := &fakeClient{}
		adjustments, err := newReconciler(client).Reconcile(context.Background(), receiptPNG, "image/png", money("31.49"), items)

		Expect(err).NotTo(HaveOccurred())
		Expect(adjustments).To(BeEmpty())
		Expect(client.requests).To(BeEmpty())
	})

	It("treats differences within five cents as matching", func() {
		client := &fakeClient{}
		adjustments, err := newReconciler(client).Reconcile(context.Background(), receiptPNG, "image/png", money("31.53"), items)

		Expect(err).NotTo(HaveOccurred())
		Expect(adjustments).To(BeEmpty())
		Expect(client.requests).To(BeEmpty())
	})

	It("applies a removal proposal that closes the gap", func() {
		client := &fakeClient{responses: []fakeResponse{
			{text: `[{"item_id": "c", "remove": true, "reason": "same item scanned twice"}]`},
		}}
		adjustments, err := newReconciler(client).Reconcile(context.Background(), receiptPNG, "image/png", money("24.49"), items)

		Expect(err).NotTo(HaveOccurred())
		Expect(adjustments).To(HaveLen(1))
		Expect(adjustments[0].ItemID).To(Equal("c"))
		Expect(adjustments[0].Remove).To(BeTrue())
		Expect(adjustments[0].Reason).To(Equal("same item scanned twice"))
	})

	It("drops unknown and duplicate item ids from the proposal", func() {
		client := &fakeClient{responses: []fakeResponse{
			{text: `[
				{"item_id": "zzz", "remove": true, "reason": "hallucinated"},
				{"item_id": "c", "remove": true, "reason": "duplicate"},
				{"item_id": "c", "remove": true, "reason": "duplicate again"}
			]`},
		}}
		adjustments, err := newReconciler(client).Reconcile(context.Background(), receiptPNG, "image/png", money("24.49"), items)

		Expect(err).NotTo(HaveOccurred())
		Expect(adjustments).To(HaveLen(1))
		Expect(adjustments[0].ItemID).To(Equal("c"))
	})

	It("discards a proposal that still leaves the total out of tolerance", func() {
		client := &fakeClient{responses: []fakeResponse{
			{text: `[{"item_id": "a", "remove": true, "reason": "not enough"}]`},
		}}
		adjustments, err := newReconciler(client).Reconcile(context.Background(), receiptPNG, "image/png", money("10.00"), items)

		Expect(err).NotTo(HaveOccurred())
		Expect(adjustments).To(BeEmpty())
	})

	It("clamps overlong removal reasons", func() {
		longReason := strings.Repeat("x", maxReasonLength+50)
		client := &fakeClient{responses: []fakeResponse{
			{text: `[{"item_id": "c", "remove": true, "reason": "` + longReason + `"}]`},
		}}
		adjustments, err := newReconciler(client).Reconcile(context.Background(), receiptPNG, "image/png", money("24.49"), items)

		Expect(err).NotTo(HaveOccurred())
		Expect(adjustments).To(HaveLen(1))
		Expect(adjustments[0].Reason).To(HaveLen(maxReasonLength))
	})

	It("clamps non-ASCII reasons on rune boundaries", func() {
		longReason := strings.Repeat("д", maxReasonLength+50)
		client := &fakeClient{responses: []fakeResponse{
			{text: `[{"item_id": "c", "remove": true, "reason": "` + longReason + `"}]`},
		}}
		adjustments, err := newReconciler(client).Reconcile(context.Background(), receiptPNG, "image/png", money("24.49"), items)

		Expect(err).NotTo(HaveOccurred())
		Expect(adjustments).To(HaveLen(1))
		reason := adjustments[0].Reason
		Expect(utf8.ValidString(reason)).To(BeTrue())
		Expect([]rune(reason)).To(HaveLen(maxReasonLength))
	})

	It("lists every item with its id in the prompt", func() {
		client := &fakeClient{responses: []fakeResponse{{text: `[]`}}}
		_, err := newReconciler(client).Reconcile(context.Background(), receiptPNG, "image/png", money("24.49"), items)

		Expect(err).NotTo(HaveOccurred())
		Expect(client.requests).To(HaveLen(1))
		Expect(client.requests[0].ImagePNG).NotTo(BeEmpty())
		prompt := client.requests[0].Prompt
		Expect(prompt).To(ContainSubstring("id=a"))
		Expect(prompt).To(ContainSubstring("id=b"))
		Expect(prompt).To(ContainSubstring("id=c"))
		Expect(prompt).To(ContainSubstring("24.49"))
	})
})
