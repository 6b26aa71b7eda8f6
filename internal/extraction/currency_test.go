package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("StandardizeCurrency", func() {
	It("maps common symbols to ISO 4217 codes", func() {
		Expect(StandardizeCurrency("$")).To(Equal("USD"))
		Expect(StandardizeCurrency("€")).To(Equal("EUR"))
		Expect(StandardizeCurrency("₽")).To(Equal("RUB"))
		Expect(StandardizeCurrency("¥")).To(Equal("JPY"))
	})

	It("maps spelled-out names regardless of case", func() {
		Expect(StandardizeCurrency("dollars")).To(Equal("USD"))
		Expect(StandardizeCurrency("Euro")).To(Equal("EUR"))
		Expect(StandardizeCurrency("руб.")).To(Equal("RUB"))
	})

	It("is idempotent on codes it produces", func() {
		for _, raw := range []string{"$", "eur", "rubles", "GBP", "chf"} {
			once := StandardizeCurrency(raw)
			Expect(StandardizeCurrency(once)).To(Equal(once))
		}
	})

	It("passes unrecognized values through trimmed", func() {
		Expect(StandardizeCurrency("  XDR ")).To(Equal("XDR"))
		Expect(StandardizeCurrency("doubloons")).To(Equal("doubloons"))
	})
})
