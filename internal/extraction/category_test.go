package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ResolveCategory", func() {
	existing := []CategoryCandidate{
		{Name: "Dairy", Description: "Milk, cheese and other dairy products"},
		{Name: "Beverages", Description: "Drinks"},
	}

	It("reuses an existing category on an exact name match", func() {
		res := ResolveCategory(CategoryCandidate{Name: "Dairy"}, existing)
		Expect(res.Existing).NotTo(BeNil())
		Expect(res.Create).To(BeNil())
		Expect(res.Existing.Description).To(Equal("Milk, cheese and other dairy products"))
	})

	It("matches case-insensitively and across whitespace noise", func() {
		res := ResolveCategory(CategoryCandidate{Name: "  dairy "}, existing)
		Expect(res.Existing).NotTo(BeNil())
		Expect(res.Existing.Name).To(Equal("Dairy"))

		res = ResolveCategory(CategoryCandidate{Name: "BEVERAGES"}, existing)
		Expect(res.Existing).NotTo(BeNil())
		Expect(res.Existing.Name).To(Equal("Beverages"))
	})

	It("proposes a creation for an unseen name", func() {
		res := ResolveCategory(CategoryCandidate{Name: " Pet Supplies ", Description: "Food and toys"}, existing)
		Expect(res.Existing).To(BeNil())
		Expect(res.Create).NotTo(BeNil())
		Expect(res.Create.Name).To(Equal("Pet Supplies"))
		Expect(res.Create.Description).To(Equal("Food and toys"))
	})
})

var _ = Describe("NormalizeCategoryName", func() {
	It("lowercases and collapses interior whitespace", func() {
		Expect(NormalizeCategoryName("  Dry   Goods &\tPantry ")).To(Equal("dry goods & pantry"))
		Expect(NormalizeCategoryName("Dairy")).To(Equal("dairy"))
	})
})
