package registry_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tabulahq/tabula/pkg/logger"
	"github.com/tabulahq/tabula/pkg/registry"
	"github.com/tabulahq/tabula/pkg/registry/inmemory"
	"github.com/tabulahq/tabula/pkg/sheet"
)

var _ = Describe("Registry", func() {
	var (
		ctx    context.Context
		driver *inmemory.Driver
		reg    *registry.Registry
	)

	newSheet := func(name string) *sheet.Sheet {
		s := sheet.New(name, 3, 2, logger.Nop())
		s.SetValueAt(0, 1, "Name")
		s.SetValueAt(0, 2, "Note")
		return s
	}

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
		reg = registry.New(driver, "conv-1", logger.Nop())
	})

	Describe("Upsert and Sheets", func() {
		It("returns sheets in insertion order", func() {
			a := newSheet("Alpha")
			b := newSheet("Beta")
			Expect(reg.Upsert(ctx, a)).To(Succeed())
			Expect(reg.Upsert(ctx, b)).To(Succeed())

			sheets, err := reg.Sheets(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sheets).To(HaveLen(2))
			Expect(sheets[0].Name).To(Equal("Alpha"))
			Expect(sheets[1].Name).To(Equal("Beta"))
		})

		It("writes through so a fresh registry sees the same state", func() {
			s := newSheet("Cast")
			s.AppendRow()
			s.SetValueAt(1, 1, "Alice")
			Expect(reg.Upsert(ctx, s)).To(Succeed())

			other := registry.New(driver, "conv-1", logger.Nop())
			got, err := other.Sheet(ctx, s.UID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ValueAt(1, 1)).To(Equal("Alice"))
		})

		It("keeps conversations isolated", func() {
			Expect(reg.Upsert(ctx, newSheet("Mine"))).To(Succeed())

			other := registry.New(driver, "conv-2", logger.Nop())
			sheets, err := other.Sheets(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sheets).To(BeEmpty())
		})
	})

	Describe("Sheet", func() {
		It("returns NotFoundError for unknown uids", func() {
			_, err := reg.Sheet(ctx, "sheet_nope")
			Expect(err).To(BeAssignableToTypeOf(registry.NotFoundError{}))
		})
	})

	Describe("EnabledSheets", func() {
		It("filters disabled sheets", func() {
			off := newSheet("Off")
			off.Enabled = false
			Expect(reg.Upsert(ctx, newSheet("On"))).To(Succeed())
			Expect(reg.Upsert(ctx, off)).To(Succeed())

			enabled, err := reg.EnabledSheets(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(enabled).To(HaveLen(1))
			Expect(enabled[0].Name).To(Equal("On"))
		})
	})

	Describe("Delete", func() {
		It("removes the sheet from storage and listing", func() {
			s := newSheet("Doomed")
			Expect(reg.Upsert(ctx, s)).To(Succeed())
			Expect(reg.Delete(ctx, s.UID)).To(Succeed())

			sheets, err := reg.Sheets(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sheets).To(BeEmpty())
			_, err = driver.GetSheet(ctx, "conv-1", s.UID)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Register", func() {
		It("persists migrated records and hydrates them on listing", func() {
			s := newSheet("Migrated")
			Expect(reg.Register(ctx, []sheet.Record{s.ToRecord()})).To(Succeed())

			sheets, err := reg.Sheets(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sheets).To(HaveLen(1))
			Expect(sheets[0].Name).To(Equal("Migrated"))
		})
	})

	Describe("ApplySnapshots", func() {
		It("repoints present sheets and resets absent ones to header only", func() {
			a := newSheet("Tracked")
			a.AppendRow()
			a.SetValueAt(1, 1, "v1")
			snapshot := a.Snapshot()
			a.SetValueAt(1, 1, "v2")

			b := newSheet("Untracked")
			b.AppendRow()
			b.SetValueAt(1, 1, "stale")

			Expect(reg.Upsert(ctx, a)).To(Succeed())
			Expect(reg.Upsert(ctx, b)).To(Succeed())

			err := reg.ApplySnapshots(ctx, map[string][][]string{a.UID: snapshot})
			Expect(err).NotTo(HaveOccurred())

			Expect(a.ValueAt(1, 1)).To(Equal("v1"))
			Expect(b.RowCount()).To(Equal(1))
		})

		It("tolerates snapshots for sheets it has never seen", func() {
			err := reg.ApplySnapshots(ctx, map[string][][]string{"sheet_ghost": {{"x"}}})
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("StampTemplates", func() {
		var tpl *sheet.Template

		BeforeEach(func() {
			tpl = sheet.NewTemplate("CastTemplate", 3, logger.Nop())
			tpl.SetValueAt(0, 1, "Name")
			tpl.SetValueAt(0, 2, "Note")
			Expect(reg.SaveTemplate(ctx, tpl)).To(Succeed())
		})

		It("creates one sheet per enabled template", func() {
			created, err := reg.StampTemplates(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(HaveLen(1))
			Expect(created[0].Name).To(Equal("CastTable"))
			Expect(created[0].Template).To(Equal(tpl.UID))
			Expect(created[0].Header()).To(Equal([]string{"Name", "Note"}))
		})

		It("does not stamp the same template twice", func() {
			_, err := reg.StampTemplates(ctx)
			Expect(err).NotTo(HaveOccurred())

			again, err := reg.StampTemplates(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(BeEmpty())
		})

		It("skips disabled templates", func() {
			tpl.Enabled = false
			Expect(reg.SaveTemplate(ctx, tpl)).To(Succeed())

			created, err := reg.StampTemplates(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeEmpty())
		})
	})
})
