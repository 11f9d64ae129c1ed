package export_test

import (
	"context"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tabulahq/tabula/pkg/export"
	"github.com/tabulahq/tabula/pkg/logger"
	"github.com/tabulahq/tabula/pkg/registry"
	"github.com/tabulahq/tabula/pkg/registry/inmemory"
	"github.com/tabulahq/tabula/pkg/sheet"
)

func castSheet(rows ...[]string) *sheet.Sheet {
	s := sheet.New("Cast", 3, 2, logger.Nop())
	s.SetValueAt(0, 1, "Name")
	s.SetValueAt(0, 2, "Note")
	s.InitHeaderOnly()
	for _, row := range rows {
		r := s.AppendRow()
		for c, v := range row {
			s.SetValueAt(r, c+1, v)
		}
	}
	return s
}

var _ = Describe("Marshal", func() {
	It("writes one entry per enabled sheet plus the format marker", func() {
		a := castSheet([]string{"Alice", "Hello"})
		b := castSheet()
		b.Enabled = false

		data, err := export.Marshal([]*sheet.Sheet{a, b})
		Expect(err).NotTo(HaveOccurred())

		var doc map[string]json.RawMessage
		Expect(json.Unmarshal(data, &doc)).To(Succeed())
		Expect(doc).To(HaveKey(a.UID))
		Expect(doc).NotTo(HaveKey(b.UID))

		var marker export.Marker
		Expect(json.Unmarshal(doc["mate"], &marker)).To(Succeed())
		Expect(marker.Type).To(Equal("chatSheets"))
		Expect(marker.Version).To(Equal(1))
	})

	It("refuses to export nothing", func() {
		_, err := export.Marshal(nil)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Unmarshal", func() {
	It("round-trips entries through Marshal", func() {
		s := castSheet([]string{"Alice", "Hello"})
		s.SetOriginMeta(sheet.MetaNote, "the cast")

		data, err := export.Marshal([]*sheet.Sheet{s})
		Expect(err).NotTo(HaveOccurred())

		entries, err := export.Unmarshal(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].UID).To(Equal(s.UID))
		Expect(entries[0].Name).To(Equal("Cast"))
		Expect(entries[0].SourceData[sheet.MetaNote]).To(Equal("the cast"))
		Expect(entries[0].Content[0]).To(Equal([]string{"", "Name", "Note"}))
		Expect(entries[0].Content[1]).To(Equal([]string{"", "Alice", "Hello"}))
	})

	It("rejects files without the format marker", func() {
		_, err := export.Unmarshal([]byte(`{"sheet_x": {"uid": "sheet_x"}}`))
		Expect(err).To(MatchError(ContainSubstring("format marker")))
	})

	It("rejects files with a wrong marker type", func() {
		_, err := export.Unmarshal([]byte(`{"mate": {"type": "somethingElse", "version": 1}}`))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Apply", func() {
	var (
		ctx context.Context
		reg *registry.Registry
	)

	BeforeEach(func() {
		ctx = context.Background()
		reg = registry.New(inmemory.NewDriver(), "conv-1", logger.Nop())
	})

	It("rewrites an existing sheet in place", func() {
		s := castSheet([]string{"Alice", "old"})
		Expect(reg.Upsert(ctx, s)).To(Succeed())

		source := castSheet([]string{"Alice", "new"}, []string{"Bob", "added"})
		source.UID = s.UID
		data, err := export.Marshal([]*sheet.Sheet{source})
		Expect(err).NotTo(HaveOccurred())
		entries, err := export.Unmarshal(data)
		Expect(err).NotTo(HaveOccurred())

		Expect(export.Apply(ctx, reg, entries, export.ModeData, logger.Nop())).To(Succeed())

		got, err := reg.Sheet(ctx, s.UID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Content(false)).To(Equal([][]string{
			{"Alice", "new"},
			{"Bob", "added"},
		}))
	})

	It("creates unknown sheets in both mode and disables absent ones", func() {
		stale := castSheet([]string{"Old", "data"})
		Expect(reg.Upsert(ctx, stale)).To(Succeed())

		incoming := castSheet([]string{"Alice", "Hello"})
		data, err := export.Marshal([]*sheet.Sheet{incoming})
		Expect(err).NotTo(HaveOccurred())
		entries, err := export.Unmarshal(data)
		Expect(err).NotTo(HaveOccurred())

		Expect(export.Apply(ctx, reg, entries, export.ModeBoth, logger.Nop())).To(Succeed())

		created, err := reg.Sheet(ctx, incoming.UID)
		Expect(err).NotTo(HaveOccurred())
		Expect(created.Header()).To(Equal([]string{"Name", "Note"}))

		old, err := reg.Sheet(ctx, stale.UID)
		Expect(err).NotTo(HaveOccurred())
		Expect(old.Enabled).To(BeFalse())
	})

	It("skips unknown sheets in data-only mode", func() {
		incoming := castSheet([]string{"Alice", "Hello"})
		data, err := export.Marshal([]*sheet.Sheet{incoming})
		Expect(err).NotTo(HaveOccurred())
		entries, err := export.Unmarshal(data)
		Expect(err).NotTo(HaveOccurred())

		Expect(export.Apply(ctx, reg, entries, export.ModeData, logger.Nop())).To(Succeed())

		sheets, err := reg.Sheets(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(sheets).To(BeEmpty())
	})
})
