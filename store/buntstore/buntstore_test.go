package buntstore

import (
	"context"

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
		ctx = context.Background()
	)

	BeforeEach(func() {
		builders := store.Builders{
			"item": func() meta.Record { return &testRecord{} },
		}
		var err error
		s, err = Open(":memory:", builders)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(s.Close()).To(Succeed())
	})

	It("returns not-found for a UUID never saved", func() {
		_, found, err := s.Load(ctx, "item", uuid.New())
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())
	})

	It("round-trips a saved record", func() {
		rec := &testRecord{ID: uuid.New(), Name: "potion"}
		Expect(s.Save("item", rec)).To(Succeed())

		loaded, found, err := s.Load(ctx, "item", rec.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
		Expect(loaded.(*testRecord).Name).To(Equal("potion"))
	})

	It("no longer finds a deleted record", func() {
		rec := &testRecord{ID: uuid.New(), Name: "scroll"}
		Expect(s.Save("item", rec)).To(Succeed())
		Expect(s.Delete("item", rec.ID)).To(Succeed())

		_, found, err := s.Load(ctx, "item", rec.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())
	})

	It("fails a Load for a type with no registered builder", func() {
		noBuilders, err := Open(":memory:", store.Builders{})
		Expect(err).NotTo(HaveOccurred())
		defer noBuilders.Close()

		rec := &testRecord{ID: uuid.New(), Name: "x"}
		Expect(noBuilders.Save("item", rec)).To(Succeed())

		_, _, err = noBuilders.Load(ctx, "item", rec.ID)
		Expect(err).To(HaveOccurred())
	})
})
