package buntstore

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestBuntstore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "buntstore Suite")
}
