package extraction

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

func encodePNG(width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("Pipeline", func() {
	newPipeline := func(c *fakeClient) *Pipeline {
		agent := NewAgent(c, time.Second, zap.NewNop())
		return NewPipeline(agent, zap.NewNop())
	}

	It("rejects an image below the minimum resolution without calling the model", func() {
		client := &fakeClient{}
		_, err := newPipeline(client).Run(context.Background(), encodePNG(80, 80), "image/png", nil)

		Expect(err).To(HaveOccurred())
		Expect(KindOf(err)).To(Equal(KindInvalidInput))
		Expect(client.requests).To(BeEmpty())
	})

	It("rejects empty input", func() {
		client := &fakeClient{}
		_, err := newPipeline(client).Run(context.Background(), nil, "image/png", nil)

		Expect(err).To(HaveOccurred())
		Expect(KindOf(err)).To(Equal(KindInvalidInput))
	})

	It("standardizes the receipt currency and forces it onto every item", func() {
		client := &fakeClient{responses: []fakeResponse{{text: validExtraction}}}
		result, err := newPipeline(client).Run(context.Background(), encodePNG(200, 300), "image/png", nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Receipt.Currency).To(Equal("USD"))
		for _, it := range result.Items {
			Expect(it.Currency).To(Equal("USD"))
		}
	})

	It("carries the extracted receipt header into the result", func() {
		client := &fakeClient{responses: []fakeResponse{{text: validExtraction}}}
		result, err := newPipeline(client).Run(context.Background(), encodePNG(200, 300), "image/png", nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Receipt.StoreName).To(Equal("Corner Grocer"))
		Expect(result.Receipt.TotalAmount.StringFixed(2)).To(Equal("31.49"))
	})

	It("reuses existing categories instead of proposing duplicates", func() {
		client := &fakeClient{responses: []fakeResponse{{text: validExtraction}}}
		existing := []CategoryCandidate{{Name: "dairy", Description: "already in the account"}}

		result, err := newPipeline(client).Run(context.Background(), encodePNG(200, 300), "image/png", existing)

		Expect(err).NotTo(HaveOccurred())
		names := make([]string, 0, len(result.NewCategories))
		for _, c := range result.NewCategories {
			names = append(names, c.Name)
		}
		Expect(names).To(ConsistOf("Produce", "Bakery"))

		// The dairy item carries the account's category, not the model's.
		Expect(result.Items[0].Category.Name).To(Equal("dairy"))
		Expect(result.Items[0].Category.Description).To(Equal("already in the account"))
	})

	It("deduplicates a category proposed by several items within one pass", func() {
		response := `{
			"store_name": "Corner Grocer",
			"total_amount": 6.98,
			"currency": "USD",
			"items": [
				{"name": "Milk", "price": 3.49, "quantity": 1, "category": {"name": "Dairy", "description": "Milk and cheese"}},
				{"name": "Cheese", "price": 3.49, "quantity": 1, "category": {"name": "dairy", "description": "dairy stuff"}}
			]
		}`
		client := &fakeClient{responses: []fakeResponse{{text: response}}}

		result, err := newPipeline(client).Run(context.Background(), encodePNG(200, 300), "image/png", nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.NewCategories).To(HaveLen(1))
		Expect(result.NewCategories[0].Name).To(Equal("Dairy"))
		Expect(result.Items[0].Category.Name).To(Equal("Dairy"))
		Expect(result.Items[1].Category.Name).To(Equal("Dairy"))
		Expect(result.CategoryNames).To(Equal([]string{"Dairy"}))
	})

	It("records category names in first-use order", func() {
		client := &fakeClient{responses: []fakeResponse{{text: validExtraction}}}
		result, err := newPipeline(client).Run(context.Background(), encodePNG(200, 300), "image/png", nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.CategoryNames).To(Equal([]string{"Dairy", "Produce", "Bakery"}))
	})
})

var _ = Describe("prepareImage", func() {
	It("accepts a PNG at exactly the minimum resolution", func() {
		out, err := prepareImage(encodePNG(100, 100), "image/png")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).NotTo(BeEmpty())
	})

	It("rejects undecodable bytes as invalid input", func() {
		_, err := prepareImage([]byte("not an image"), "image/png")
		Expect(err).To(HaveOccurred())
		Expect(KindOf(err)).To(Equal(KindInvalidInput))
	})
})
