package handlers

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestMultipartSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "multipart upload state machine")
}
