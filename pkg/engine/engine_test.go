package engine_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tabulahq/tabula/pkg/chat"
	"github.com/tabulahq/tabula/pkg/engine"
	"github.com/tabulahq/tabula/pkg/logger"
	"github.com/tabulahq/tabula/pkg/registry"
	"github.com/tabulahq/tabula/pkg/registry/inmemory"
	"github.com/tabulahq/tabula/pkg/sheet"
	"github.com/tabulahq/tabula/pkg/worker"
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

func editTag(body string) string {
	return "<tableEdit>\n<!--\n" + body + "\n-->\n</tableEdit>"
}

var _ = Describe("Engine", func() {
	var (
		ctx    context.Context
		reg    *registry.Registry
		store  *chat.MemStore
		eng    *engine.Engine
		cast   *sheet.Sheet
		anchor *chat.Turn
	)

	// newEngine builds an engine over the current store and registry with a
	// debounce interval short enough for back-to-back specs.
	newEngine := func() *engine.Engine {
		e, err := engine.New(&engine.Config{
			Store:            store,
			Registry:         reg,
			DebounceInterval: time.Nanosecond,
			Logger:           logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	BeforeEach(func() {
		ctx = context.Background()
		reg = registry.New(inmemory.NewDriver(), "conv-1", logger.Nop())

		cast = castSheet()
		Expect(reg.Upsert(ctx, cast)).To(Succeed())

		// An older AI turn carrying the empty-sheet snapshot anchors the
		// transcript, so later turns have a reference to rebuild from.
		anchor = &chat.Turn{Message: "hello"}
		anchor.AttachSnapshot(cast.UID, cast.Snapshot())
		store = chat.NewMemStore(anchor)
		eng = newEngine()
	})

	Describe("New", func() {
		It("requires a store and a registry", func() {
			_, err := engine.New(&engine.Config{Registry: reg, Logger: logger.Nop()})
			Expect(err).To(HaveOccurred())

			_, err = engine.New(&engine.Config{Store: store, Logger: logger.Nop()})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("HandleMessageReceived", func() {
		It("applies edit commands and snapshots the turn", func() {
			reply := &chat.Turn{Message: "She arrives.\n" + editTag(`insertRow(0, {0: "Alice", 1: "Hello"})`)}
			store.Append(&chat.Turn{IsUser: true, Message: "who?"})
			store.Append(reply)

			Expect(eng.HandleMessageReceived(ctx)).To(Succeed())

			got, err := reg.Sheet(ctx, cast.UID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Content(false)).To(Equal([][]string{{"Alice", "Hello"}}))

			Expect(reply.HashSheets).To(HaveKey(cast.UID))
			Expect(reply.EditMatches).To(HaveLen(1))
			Expect(store.SaveCount()).To(Equal(1))
		})

		It("propagates state forward when the reply has no commands", func() {
			cast.AppendRow()
			cast.SetValueAt(1, 1, "Alice")
			anchor.AttachSnapshot(cast.UID, cast.Snapshot())

			reply := &chat.Turn{Message: "nothing to record"}
			store.Append(reply)

			Expect(eng.HandleMessageReceived(ctx)).To(Succeed())

			Expect(reply.HashSheets).To(HaveKey(cast.UID))
			got, err := reg.Sheet(ctx, cast.UID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Content(false)).To(Equal([][]string{{"Alice", ""}}))
		})

		It("rebuilds from the reference turn, not the live cache", func() {
			// Mutate the cached sheet past what the anchor recorded; the
			// reconcile must reset to the anchor's empty snapshot first.
			row := cast.AppendRow()
			cast.SetValueAt(row, 1, "Stray")

			reply := &chat.Turn{Message: "plain reply"}
			store.Append(reply)

			Expect(eng.HandleMessageReceived(ctx)).To(Succeed())

			got, err := reg.Sheet(ctx, cast.UID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Content(false)).To(BeEmpty())
		})

		It("debounces rapid repeats", func() {
			slow, err := engine.New(&engine.Config{
				Store:            store,
				Registry:         reg,
				DebounceInterval: time.Hour,
				Logger:           logger.Nop(),
			})
			Expect(err).NotTo(HaveOccurred())

			store.Append(&chat.Turn{Message: "reply"})
			Expect(slow.HandleMessageReceived(ctx)).To(Succeed())
			Expect(slow.HandleMessageReceived(ctx)).To(Succeed())
			Expect(store.SaveCount()).To(Equal(1))
		})
	})

	Describe("HandleMessageEdited", func() {
		var reply *chat.Turn

		BeforeEach(func() {
			reply = &chat.Turn{Message: editTag(`insertRow(0, {0: "Alice", 1: "Hello"})`)}
			store.Append(reply)
			Expect(eng.HandleMessageReceived(ctx)).To(Succeed())
		})

		It("is a no-op when the edit blocks did not change", func() {
			reply.Message = "reworded prose " + editTag(`insertRow(0, {0: "Alice", 1: "Hello"})`)
			Expect(eng.HandleMessageEdited(ctx, 1)).To(Succeed())
			Expect(store.SaveCount()).To(Equal(1))
		})

		It("replays the new commands from the reference state", func() {
			reply.Message = editTag(`insertRow(0, {0: "Bob", 1: "Hi"})`)
			Expect(eng.HandleMessageEdited(ctx, 1)).To(Succeed())

			got, err := reg.Sheet(ctx, cast.UID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Content(false)).To(Equal([][]string{{"Bob", "Hi"}}))
			Expect(store.SaveCount()).To(Equal(2))
		})

		It("ignores user turns", func() {
			store.Append(&chat.Turn{IsUser: true, Message: "typo fix"})
			Expect(eng.HandleMessageEdited(ctx, 2)).To(Succeed())
			Expect(store.SaveCount()).To(Equal(1))
		})

		It("rejects out-of-range indexes", func() {
			Expect(eng.HandleMessageEdited(ctx, 9)).NotTo(Succeed())
		})
	})

	Describe("Undo", func() {
		It("restores the previous turn's snapshot", func() {
			reply := &chat.Turn{Message: editTag(`insertRow(0, {0: "Alice", 1: "Hello"})`)}
			store.Append(reply)
			Expect(eng.HandleMessageReceived(ctx)).To(Succeed())

			Expect(eng.Undo(ctx)).To(Succeed())

			got, err := reg.Sheet(ctx, cast.UID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Content(false)).To(BeEmpty())
			Expect(reply.HashSheets[cast.UID]).To(HaveLen(1))
		})

		It("fails without an earlier snapshot", func() {
			store = chat.NewMemStore(&chat.Turn{Message: "only turn"})
			eng = newEngine()
			Expect(eng.Undo(ctx)).NotTo(Succeed())
		})
	})

	Describe("ClearEmptyRows", func() {
		It("drops rows the model never filled", func() {
			row := cast.AppendRow()
			cast.SetValueAt(row, 1, "Alice")
			cast.AppendRow()

			Expect(eng.ClearEmptyRows(ctx)).To(Succeed())

			got, err := reg.Sheet(ctx, cast.UID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Content(false)).To(Equal([][]string{{"Alice", ""}}))
		})
	})

	Describe("worker pool persistence", func() {
		It("lands snapshot records through the pool", func() {
			driver := inmemory.NewDriver()
			reg = registry.New(driver, "conv-1", logger.Nop())
			cast = castSheet()
			Expect(reg.Upsert(ctx, cast)).To(Succeed())

			pool, err := worker.NewPool(&worker.Config{Driver: driver, Logger: logger.Nop()})
			Expect(err).NotTo(HaveOccurred())

			store = chat.NewMemStore()
			store.Append(&chat.Turn{Message: editTag(`insertRow(0, {0: "Alice", 1: "Hello"})`)})
			eng, err = engine.New(&engine.Config{
				Store:    store,
				Registry: reg,
				Pool:     pool,
				Logger:   logger.Nop(),
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(eng.HandleMessageReceived(ctx)).To(Succeed())
			pool.Close()

			rec, err := driver.GetSheet(ctx, "conv-1", cast.UID)
			Expect(err).NotTo(HaveOccurred())

			restored, err := sheet.FromRecord(rec, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			Expect(restored.Content(false)).To(Equal([][]string{{"Alice", "Hello"}}))
		})
	})
})
