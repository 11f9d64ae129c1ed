package sqlite_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tabulahq/tabula/pkg/logger"
	"github.com/tabulahq/tabula/pkg/registry"
	"github.com/tabulahq/tabula/pkg/registry/sqlite"
	"github.com/tabulahq/tabula/pkg/sheet"
)

func testRecord(name string) sheet.Record {
	s := sheet.New(name, 3, 2, logger.Nop())
	s.SetValueAt(0, 1, "Name")
	s.SetValueAt(0, 2, "Note")
	return s.ToRecord()
}

var _ = Describe("Driver", func() {
	var (
		ctx    context.Context
		driver *sqlite.Driver
		dbPath string
	)

	BeforeEach(func() {
		ctx = context.Background()
		dbPath = filepath.Join(GinkgoT().TempDir(), "tabula.db")

		var err error
		driver, err = sqlite.NewDriver(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if driver != nil {
			driver.Close()
		}
	})

	Describe("NewDriver", func() {
		It("creates the database file", func() {
			_, err := os.Stat(dbPath)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("sheet records", func() {
		It("round-trips a record through put and get", func() {
			rec := testRecord("Cast")
			Expect(driver.PutSheet(ctx, "conv-1", rec)).To(Succeed())

			got, err := driver.GetSheet(ctx, "conv-1", rec.UID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Name).To(Equal("Cast"))
			Expect(got.CellHistory).To(HaveLen(len(rec.CellHistory)))
			Expect(got.HashSheet).To(Equal(rec.HashSheet))
		})

		It("lists records in first-insertion order across upserts", func() {
			a := testRecord("Alpha")
			b := testRecord("Beta")
			Expect(driver.PutSheet(ctx, "conv-1", a)).To(Succeed())
			Expect(driver.PutSheet(ctx, "conv-1", b)).To(Succeed())

			a.Name = "Alpha v2"
			Expect(driver.PutSheet(ctx, "conv-1", a)).To(Succeed())

			recs, err := driver.ListSheets(ctx, "conv-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(2))
			Expect(recs[0].Name).To(Equal("Alpha v2"))
			Expect(recs[1].Name).To(Equal("Beta"))
		})

		It("namespaces records by conversation", func() {
			rec := testRecord("Cast")
			Expect(driver.PutSheet(ctx, "conv-1", rec)).To(Succeed())

			_, err := driver.GetSheet(ctx, "conv-2", rec.UID)
			Expect(err).To(BeAssignableToTypeOf(registry.NotFoundError{}))
		})

		It("deletes records and reports missing ones", func() {
			rec := testRecord("Cast")
			Expect(driver.PutSheet(ctx, "conv-1", rec)).To(Succeed())
			Expect(driver.DeleteSheet(ctx, "conv-1", rec.UID)).To(Succeed())

			err := driver.DeleteSheet(ctx, "conv-1", rec.UID)
			Expect(err).To(BeAssignableToTypeOf(registry.NotFoundError{}))
		})
	})

	Describe("template records", func() {
		It("round-trips templates independently of sheets", func() {
			tpl := sheet.NewTemplate("CastTemplate", 3, logger.Nop())
			rec := tpl.ToRecord()
			Expect(driver.PutTemplate(ctx, rec)).To(Succeed())

			got, err := driver.GetTemplate(ctx, rec.UID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Name).To(Equal("CastTemplate"))
			Expect(got.Domain).To(Equal(sheet.DomainGlobal))

			recs, err := driver.ListSheets(ctx, "conv-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(BeEmpty())
		})

		It("reports missing templates", func() {
			_, err := driver.GetTemplate(ctx, "template_nope")
			Expect(err).To(BeAssignableToTypeOf(registry.NotFoundError{}))
		})
	})

	Describe("persistence", func() {
		It("survives a close and reopen", func() {
			rec := testRecord("Durable")
			Expect(driver.PutSheet(ctx, "conv-1", rec)).To(Succeed())
			Expect(driver.Close()).To(Succeed())

			reopened, err := sqlite.NewDriver(dbPath)
			Expect(err).NotTo(HaveOccurred())
			driver = reopened

			got, err := driver.GetSheet(ctx, "conv-1", rec.UID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Name).To(Equal("Durable"))
		})
	})
})
