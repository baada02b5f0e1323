package fsstore

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestFsstore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "fsstore Suite")
}
