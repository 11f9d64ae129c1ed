package refresh_test

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tabulahq/tabula/pkg/llm"
	"github.com/tabulahq/tabula/pkg/logger"
	"github.com/tabulahq/tabula/pkg/refresh"
	"github.com/tabulahq/tabula/pkg/sheet"
)

type fakeProvider struct {
	key     string
	replies map[string]string // key -> reply content
	errs    map[string]error
	calls   *[]string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Chat(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	*f.calls = append(*f.calls, f.key)
	if err := f.errs[f.key]; err != nil {
		return nil, err
	}
	return &llm.ChatResponse{Model: req.Model, Content: f.replies[f.key]}, nil
}

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

var _ = Describe("Rebuilder", func() {
	var (
		calls   []string
		replies map[string]string
		errs    map[string]error
	)

	newRebuilder := func(keys string, opts ...refresh.Option) *refresh.Rebuilder {
		factory := func(key string) llm.Provider {
			return &fakeProvider{key: key, replies: replies, errs: errs, calls: &calls}
		}
		return refresh.New(factory, llm.NewKeyPool(keys), "test-model", logger.Nop(), opts...)
	}

	BeforeEach(func() {
		calls = nil
		replies = map[string]string{}
		errs = map[string]error{}
	})

	Describe("BuildPrompts", func() {
		It("expands table, history, header and extra placeholders", func() {
			r := newRebuilder("k1", refresh.WithTemplate(refresh.Template{
				SystemPrompt: "sys $2",
				UserPrompt:   "tables $0 chat $1 extra $3",
			}))

			s := castSheet([]string{"Alice", "Hello"})
			system, user, err := r.BuildPrompts([]*sheet.Sheet{s}, "the chat", "be careful")
			Expect(err).NotTo(HaveOccurred())

			Expect(system).To(ContainSubstring(`"headers":["Name","Note"]`))
			Expect(user).To(ContainSubstring(`"tableName":"Cast"`))
			Expect(user).To(ContainSubstring("chat the chat"))
			Expect(user).To(ContainSubstring("extra be careful"))
		})
	})

	Describe("ParseReply", func() {
		It("parses a bare JSON array", func() {
			docs, err := refresh.ParseReply(
				`[{"tableName":"Cast","columns":["Name"],"content":[["Alice"]]}]`)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].TableName).To(Equal("Cast"))
		})

		It("digs the array out of surrounding prose and fences", func() {
			raw := "Here you go:\n```json\n" +
				`[{"tableName":"Cast","columns":["Name"],"content":[["Alice","x"]]}]` +
				"\n```\nLet me know!"
			docs, err := refresh.ParseReply(raw)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
		})

		It("takes the last well-formed array when several appear", func() {
			raw := `[{"tableName":"draft","columns":[],"content":[]}]` +
				" final answer: " +
				`[{"tableName":"final","columns":[],"content":[]}]`
			docs, err := refresh.ParseReply(raw)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs[0].TableName).To(Equal("final"))
		})

		It("errors on prose with no array", func() {
			_, err := refresh.ParseReply("I cannot do that.")
			Expect(err).To(HaveOccurred())
		})

		It("errors on an empty reply", func() {
			_, err := refresh.ParseReply("   ")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Rebuild", func() {
		reply := func(uid string) string {
			return fmt.Sprintf(
				`[{"tableName":"Cast","tableUid":%q,"columns":["Name","Note"],"content":[["Alice","rebuilt"],["Bob","new"]]}]`,
				uid)
		}

		It("rewrites the sheet from the model proposal", func() {
			s := castSheet([]string{"Alice", "Hello"})
			replies["k1"] = reply(s.UID)

			touched, err := newRebuilder("k1").Rebuild(
				context.Background(), []*sheet.Sheet{s}, "history", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(touched).To(ConsistOf(s))
			Expect(s.Content(false)).To(Equal([][]string{
				{"Alice", "rebuilt"},
				{"Bob", "new"},
			}))
			Expect(s.Header()).To(Equal([]string{"Name", "Note"}))
		})

		It("rotates to the next key when the first fails", func() {
			s := castSheet([]string{"Alice", "Hello"})
			errs["k1"] = fmt.Errorf("quota exceeded")
			replies["k2"] = reply(s.UID)

			_, err := newRebuilder("k1,k2").Rebuild(
				context.Background(), []*sheet.Sheet{s}, "", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(calls).To(Equal([]string{"k1", "k2"}))
		})

		It("stops with ErrDeclined when the confirmation gate rejects", func() {
			s := castSheet([]string{"Alice", "Hello"})
			replies["k1"] = reply(s.UID)

			_, err := newRebuilder("k1", refresh.WithConfirm(
				func([]refresh.TableDoc) bool { return false },
			)).Rebuild(context.Background(), []*sheet.Sheet{s}, "", "")
			Expect(err).To(MatchError(refresh.ErrDeclined))
			Expect(s.Content(false)).To(Equal([][]string{{"Alice", "Hello"}}))
		})

		It("matches proposals by declared index when uid is absent", func() {
			s := castSheet([]string{"Alice", "Hello"})
			replies["k1"] = `[{"tableName":"Cast","tableIndex":0,"columns":["Name","Note"],"content":[["Carol","match by index"]]}]`

			_, err := newRebuilder("k1").Rebuild(
				context.Background(), []*sheet.Sheet{s}, "", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Content(false)).To(Equal([][]string{{"Carol", "match by index"}}))
		})

		It("refuses to run with no sheets", func() {
			_, err := newRebuilder("k1").Rebuild(context.Background(), nil, "", "")
			Expect(err).To(HaveOccurred())
		})

		It("preserves cell identity for unchanged values", func() {
			s := castSheet([]string{"Alice", "Hello"})
			aliceID := s.CellAt(1, 1).ID
			replies["k1"] = reply(s.UID)

			_, err := newRebuilder("k1").Rebuild(
				context.Background(), []*sheet.Sheet{s}, "", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(s.CellAt(1, 1).ID).To(Equal(aliceID))
		})
	})
})
