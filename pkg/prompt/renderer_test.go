package prompt_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tabulahq/tabula/pkg/chat"
	"github.com/tabulahq/tabula/pkg/logger"
	"github.com/tabulahq/tabula/pkg/prompt"
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

var _ = Describe("Renderer", func() {
	var r *prompt.Renderer

	BeforeEach(func() {
		r = prompt.NewRenderer(logger.Nop())
	})

	It("renders title, indexed headers and indexed rows", func() {
		s := castSheet([]string{"Alice", "Hello"})
		out := r.Sheet(s, 0, prompt.DefaultParts(), "")

		Expect(out).To(ContainSubstring("* 0:Cast\n"))
		Expect(out).To(ContainSubstring("rowIndex,0:Name,1:Note\n"))
		Expect(out).To(ContainSubstring("0,Alice,Hello\n"))
	})

	It("includes the note and edit rules from origin metadata", func() {
		s := castSheet([]string{"Alice", "Hello"})
		s.SetOriginMeta(sheet.MetaNote, "tracks the cast")
		s.SetOriginMeta(sheet.MetaInsertRule, "when someone new appears")
		s.SetOriginMeta(sheet.MetaUpdateRule, "when a note changes")

		out := r.Sheet(s, 0, prompt.DefaultParts(), "")
		Expect(out).To(ContainSubstring("[Note] tracks the cast\n"))
		Expect(out).To(ContainSubstring("Insert: when someone new appears\n"))
		Expect(out).To(ContainSubstring("Update: when a note changes\n"))
		Expect(out).NotTo(ContainSubstring("Delete:"))
	})

	It("shows only the initial-fill rule for a required empty sheet", func() {
		s := castSheet()
		s.Required = true
		s.SetOriginMeta(sheet.MetaInitRule, "fill in the protagonist")

		out := r.Sheet(s, 0, prompt.DefaultParts(), "")
		Expect(out).To(ContainSubstring("Insert: fill in the protagonist\n"))
	})

	It("marks an empty sheet as empty", func() {
		out := r.Sheet(castSheet(), 0, prompt.DefaultParts(), "")
		Expect(out).To(ContainSubstring("(this table is currently empty)"))
	})

	It("omits data-only parts in pure mode", func() {
		s := castSheet([]string{"Alice", "Hello"})
		s.SetOriginMeta(sheet.MetaNote, "secret")

		out := r.Sheet(s, 0, prompt.PureParts(), "")
		Expect(out).NotTo(ContainSubstring("secret"))
		Expect(out).NotTo(ContainSubstring("[Trigger Conditions]"))
		Expect(out).To(ContainSubstring("0,Alice,Hello\n"))
	})

	Describe("trigger-filtered sheets", func() {
		It("suppresses the whole sheet at depth zero", func() {
			s := castSheet([]string{"Alice", "Hello"})
			s.TriggerSend = true
			s.TriggerSendDeep = 0

			Expect(r.Sheet(s, 0, prompt.DefaultParts(), "anything")).To(BeEmpty())
		})

		It("keeps only rows mentioned in recent history", func() {
			s := castSheet([]string{"Alice", "around"}, []string{"Bob", "absent"})
			s.TriggerSend = true
			s.TriggerSendDeep = 2

			out := r.Sheet(s, 0, prompt.DefaultParts(), "Alice walked in.")
			Expect(out).To(ContainSubstring("Alice"))
			Expect(out).NotTo(ContainSubstring("Bob"))
		})
	})

	Describe("Sheets", func() {
		It("renders sheets with their command-addressable indexes", func() {
			out := r.Sheets([]*sheet.Sheet{castSheet(), castSheet()}, prompt.PureParts(), "")
			Expect(out).To(ContainSubstring("* 0:Cast"))
			Expect(out).To(ContainSubstring("* 1:Cast"))
		})
	})

	Describe("RecentHistory", func() {
		It("collects the newest turns and strips edit blocks", func() {
			turns := []*chat.Turn{
				{Message: "ancient"},
				{Message: "recent one <tableEdit>insertRow(0, {0:\"x\"})</tableEdit>"},
				{Message: "recent two"},
			}

			h := prompt.RecentHistory(turns, 2)
			Expect(h).To(ContainSubstring("recent one"))
			Expect(h).To(ContainSubstring("recent two"))
			Expect(h).NotTo(ContainSubstring("ancient"))
			Expect(h).NotTo(ContainSubstring("insertRow"))
		})
	})
})
