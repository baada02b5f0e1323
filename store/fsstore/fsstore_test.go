package fsstore

import (
	"context"
	"os"

	"github.com/google/uuid"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/compforge/syncmesh/core/meta"
	"github.com/compforge/syncmesh/store"
)

type testRecord struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func (r *testRecord) SyncUUID() uuid.UUID { return r.ID }

var _ = Describe("Store", func() {
	var (
		s   *Store
		dir string
		ctx = context.Background()
	)

	BeforeEach(func() {
		var mkErr error
		dir, mkErr = os.MkdirTemp("", "fsstore-test-")
		Expect(mkErr).NotTo(HaveOccurred())
		builders := store.Builders{
			"item": func() meta.Record { return &testRecord{} },
		}
		var err error
		s, err = Open(dir, builders, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(os.RemoveAll(dir)).To(Succeed())
	})

	It("returns not-found for a UUID never saved", func() {
		_, found, err := s.Load(ctx, "item", uuid.New())
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())
	})

	It("round-trips a saved record to its own file", func() {
		rec := &testRecord{ID: uuid.New(), Name: "bow"}
		Expect(s.Save("item", rec)).To(Succeed())

		loaded, found, err := s.Load(ctx, "item", rec.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
		Expect(loaded.(*testRecord).Name).To(Equal("bow"))
	})

	It("reseeds its existence filter from files left by a prior run", func() {
		rec := &testRecord{ID: uuid.New(), Name: "staff"}
		Expect(s.Save("item", rec)).To(Succeed())

		reopened, err := Open(dir, store.Builders{"item": func() meta.Record { return &testRecord{} }}, nil)
		Expect(err).NotTo(HaveOccurred())

		loaded, found, err := reopened.Load(ctx, "item", rec.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
		Expect(loaded.(*testRecord).Name).To(Equal("staff"))
	})
})
