package extraction

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestExtraction(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Extraction Suite")
}
