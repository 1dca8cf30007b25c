package session

import (
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/starford/wordmaster/internal/apperr"
	"github.com/starford/wordmaster/internal/kv"
	"github.com/starford/wordmaster/internal/models"
	"github.com/starford/wordmaster/internal/store"
)

const fiveWords = "apple;苹果\ncat;猫\ndog;狗\nsun;太阳\nmoon;月亮\n"

func newController(t *testing.T, text string) (*Controller, *kv.Memory) {
	t.Helper()
	port := kv.NewMemory()
	s := store.New(port, store.WithRand(rand.New(rand.NewSource(1))))
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	c := New(s)
	if text != "" {
		if _, _, err := c.Import(text); err != nil {
			t.Fatalf("Import: %v", err)
		}
	}
	return c, port
}

func terms(ws []models.Word) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Term
	}
	return out
}

func TestImport_ResetsFilterAndIndex(t *testing.T) {
	c, _ := newController(t, fiveWords)
	_, _ = c.SetFilter(FilterUnknown)
	_, _ = c.Advance()
	_, _ = c.Advance()

	snap, n, err := c.Import("one;1\ntwo;2\n")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if n != 2 || snap.Size != 2 {
		t.Errorf("imported %d, size %d", n, snap.Size)
	}
	if snap.Filter != FilterAll || snap.Index != 0 || snap.Current.Term != "one" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestImport_EmptyLeavesStoreUnchanged(t *testing.T) {
	c, port := newController(t, fiveWords)
	writes := port.Writes()
	snap, n, err := c.Import("nothing here\n\n")
	if !errors.Is(err, apperr.ErrImportEmpty) {
		t.Fatalf("err = %v, want ErrImportEmpty", err)
	}
	if n != 0 || snap.Size != 5 || port.Writes() != writes {
		t.Errorf("store changed: n=%d size=%d", n, snap.Size)
	}
}

func TestImport_IDsExceedLoadedOnes(t *testing.T) {
	port := kv.NewMemory()
	_ = port.Set(store.DefaultKey, []byte(`[{"id":99999999999999,"term":"a","definition":"b","status":"unknown","attempts":0,"correct":0}]`))
	s := store.New(port)
	_ = s.Load()
	c := New(s)
	snap, _, err := c.Import("x;y\n")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Current.ID <= 99999999999999 {
		t.Errorf("new id %d reuses the loaded range", snap.Current.ID)
	}
}

func TestCyclicNavigation(t *testing.T) {
	c, _ := newController(t, fiveWords)
	snap := c.Snapshot()
	n := snap.Size
	for i := 0; i < n; i++ {
		snap, _ = c.Advance()
	}
	if snap.Index != 0 {
		t.Errorf("after %d advances index = %d, want 0", n, snap.Index)
	}
	snap, _ = c.Retreat()
	if snap.Index != n-1 {
		t.Errorf("retreat from 0 = %d, want %d", snap.Index, n-1)
	}
}

func TestNavigation_ResetsTransientState(t *testing.T) {
	c, _ := newController(t, fiveWords)
	_, _ = c.Flip()
	_, _ = c.SetInput("wrong")
	_, _ = c.Check()
	_, _ = c.Reveal()

	snap, _ := c.Advance()
	if snap.Flipped || snap.Input != "" || snap.Result != ResultNone || snap.Revealed {
		t.Errorf("transient state not reset: %+v", snap)
	}
}

func TestEmptyView(t *testing.T) {
	c, _ := newController(t, "")
	snap := c.Snapshot()
	if !snap.Empty() || snap.Size != 0 {
		t.Fatalf("expected empty snapshot: %+v", snap)
	}
	for name, op := range map[string]func() (Snapshot, error){
		"advance": c.Advance,
		"retreat": c.Retreat,
		"flip":    c.Flip,
		"check":   c.Check,
	} {
		if _, err := op(); !errors.Is(err, apperr.ErrNoCurrentWord) {
			t.Errorf("%s err = %v, want ErrNoCurrentWord", name, err)
		}
	}
	if _, err := c.Rate(models.StatusFamiliar); !errors.Is(err, apperr.ErrNoCurrentWord) {
		t.Errorf("rate err = %v", err)
	}
}

func TestRate_ChangesOnlyCurrentAndAdvances(t *testing.T) {
	c, _ := newController(t, fiveWords)
	_, _ = c.Advance() // cat
	before := c.Snapshot()

	snap, err := c.Rate(models.StatusFamiliar)
	if err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if snap.Index != 2 || snap.Current.Term != "dog" {
		t.Errorf("after rate: index %d current %q", snap.Index, snap.Current.Term)
	}
	after := c.Store().Words()
	for i, w := range after {
		want := before.Active[i].Status
		if w.Term == "cat" {
			want = models.StatusFamiliar
		}
		if w.Status != want {
			t.Errorf("%s status = %q, want %q", w.Term, w.Status, want)
		}
	}
}

func TestRate_LastWrapsToFirst(t *testing.T) {
	c, _ := newController(t, fiveWords)
	_, _ = c.Retreat() // moon
	snap, _ := c.Rate(models.StatusUnknown)
	if snap.Index != 0 || snap.Current.Term != "apple" {
		t.Errorf("index %d current %q", snap.Index, snap.Current.Term)
	}
}

func TestRate_UnknownFilterDoesNotSkip(t *testing.T) {
	c, _ := newController(t, fiveWords)
	_, _ = c.SetFilter(FilterUnknown)

	snap, _ := c.Rate(models.StatusFamiliar) // apple leaves the view
	if snap.Size != 4 || snap.Current.Term != "cat" {
		t.Errorf("size %d current %q, want 4 / cat", snap.Size, snap.Current.Term)
	}

	_, _ = c.Retreat() // moon, the last one
	snap, _ = c.Rate(models.StatusFamiliar)
	if snap.Size != 3 || snap.Current.Term != "cat" {
		t.Errorf("size %d current %q, want 3 / cat", snap.Size, snap.Current.Term)
	}
}

func TestRate_LastUnknownEmptiesView(t *testing.T) {
	c, _ := newController(t, "solo;one\n")
	_, _ = c.SetFilter(FilterUnknown)
	snap, err := c.Rate(models.StatusFamiliar)
	if err != nil {
		t.Fatal(err)
	}
	if !snap.Empty() || snap.Index != 0 {
		t.Errorf("expected empty view: %+v", snap)
	}
}

func TestRate_RejectsUnrated(t *testing.T) {
	c, _ := newController(t, fiveWords)
	if _, err := c.Rate(models.StatusUnrated); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("err = %v", err)
	}
}

func TestFilterIdempotence(t *testing.T) {
	c, _ := newController(t, fiveWords)
	_, _ = c.Rate(models.StatusFamiliar)
	_, _ = c.Rate(models.StatusFamiliar)

	once := Apply(c.Store().Words(), FilterUnknown)
	twice := Apply(once, FilterUnknown)
	if len(once) != 3 || len(twice) != len(once) {
		t.Fatalf("once %v twice %v", terms(once), terms(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("element %d differs", i)
		}
	}
}

func TestToggleFilter_ConcurrentTogglesAllApply(t *testing.T) {
	c, _ := newController(t, fiveWords)
	_, _ = c.Advance()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.ToggleFilter()
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	if snap.Filter != FilterAll || snap.Index != 0 {
		t.Errorf("after 50 toggles: filter %q index %d", snap.Filter, snap.Index)
	}
	snap, _ = c.ToggleFilter()
	if snap.Filter != FilterUnknown {
		t.Errorf("one more toggle: filter %q", snap.Filter)
	}
}

func TestSetFilter_ResetsIndexAndDoesNotMutateStore(t *testing.T) {
	c, port := newController(t, fiveWords)
	_, _ = c.Advance()
	writes := port.Writes()
	snap, _ := c.SetFilter(FilterUnknown)
	if snap.Index != 0 {
		t.Errorf("index = %d", snap.Index)
	}
	if port.Writes() != writes {
		t.Error("filter change persisted something")
	}
	if _, err := c.SetFilter("bogus"); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("err = %v", err)
	}
}

func TestDictation(t *testing.T) {
	c, _ := newController(t, "apple;苹果\n")

	_, _ = c.SetInput("  Apple ")
	snap, _ := c.Check()
	if snap.Result != ResultCorrect {
		t.Errorf("result = %q, want correct", snap.Result)
	}

	snap, _ = c.SetInput("appel")
	if snap.Result != ResultNone {
		t.Errorf("edit should clear result, got %q", snap.Result)
	}
	snap, _ = c.Check()
	if snap.Result != ResultIncorrect {
		t.Errorf("result = %q, want incorrect", snap.Result)
	}
	snap, _ = c.SetInput("appe")
	if snap.Result != ResultNone {
		t.Errorf("edit after incorrect: %q", snap.Result)
	}
}

func TestDictation_RevealOnlyAfterIncorrect(t *testing.T) {
	c, _ := newController(t, fiveWords)
	snap, _ := c.Reveal()
	if snap.Revealed {
		t.Error("reveal before any check should do nothing")
	}
	_, _ = c.SetInput("pear")
	_, _ = c.Check()
	snap, _ = c.Reveal()
	if !snap.Revealed {
		t.Error("reveal after incorrect should set flag")
	}
	snap, _ = c.SetInput("apple")
	if snap.Revealed {
		t.Error("edit should return to idle")
	}
}

func TestDictation_CorrectIsTerminalUntilNavigation(t *testing.T) {
	c, _ := newController(t, fiveWords)
	_, _ = c.SetInput("apple")
	snap, _ := c.Submit()
	if snap.Result != ResultCorrect || snap.Index != 0 {
		t.Fatalf("first submit: %+v", snap)
	}
	snap, _ = c.Check()
	if snap.Result != ResultCorrect {
		t.Errorf("check on correct changed result to %q", snap.Result)
	}
	snap, _ = c.Submit()
	if snap.Index != 1 || snap.Result != ResultNone || snap.Input != "" {
		t.Errorf("second submit should advance: %+v", snap)
	}
}

func TestFlipAndDirection(t *testing.T) {
	c, _ := newController(t, "apple;苹果\n")
	snap := c.Snapshot()
	if snap.Front() != "apple" || snap.Back() != "苹果" {
		t.Errorf("term-first faces: %q / %q", snap.Front(), snap.Back())
	}
	snap, _ = c.ToggleDirection()
	if snap.Front() != "苹果" || snap.Back() != "apple" {
		t.Errorf("definition-first faces: %q / %q", snap.Front(), snap.Back())
	}
	snap, _ = c.Flip()
	if !snap.Flipped {
		t.Error("flip did not toggle")
	}
	snap, _ = c.Flip()
	if snap.Flipped {
		t.Error("second flip did not toggle back")
	}
}

func TestToggleStatus_ClampsIndex(t *testing.T) {
	c, _ := newController(t, "a;1\nb;2\n")
	_, _ = c.SetFilter(FilterUnknown)
	_, _ = c.Advance()
	snap := c.Snapshot()
	id := snap.Current.ID

	snap, err := c.ToggleStatus(id)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Size != 1 || snap.Index != 0 || snap.Current.Term != "a" {
		t.Errorf("snapshot = %+v", snap)
	}
	w, _ := c.Store().Lookup(id)
	if w.Status != models.StatusFamiliar {
		t.Errorf("status = %q", w.Status)
	}
	if _, err := c.ToggleStatus(id); err != nil {
		t.Fatal(err)
	}
	if w, _ := c.Store().Lookup(id); w.Status != models.StatusUnknown {
		t.Errorf("toggle back: %q", w.Status)
	}
	if _, err := c.ToggleStatus(-1); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing id err = %v", err)
	}
}

func TestShuffleResetClear(t *testing.T) {
	c, port := newController(t, fiveWords)
	_, _ = c.Rate(models.StatusFamiliar)
	_, _ = c.Flip()

	snap, _ := c.Shuffle()
	if snap.Index != 0 || snap.Flipped || snap.Size != 5 {
		t.Errorf("after shuffle: %+v", snap)
	}

	_, _ = c.Advance()
	snap, _ = c.ResetProgress()
	if snap.Index != 0 || snap.Stats.Unknown != 5 {
		t.Errorf("after reset: %+v", snap)
	}

	snap, _ = c.Clear()
	if !snap.Empty() || snap.Stats.Total != 0 {
		t.Errorf("after clear: %+v", snap)
	}
	if _, ok, _ := port.Get(store.DefaultKey); ok {
		t.Error("clear left persisted data")
	}
}

func TestSubscribe_NotifiesAcceptedCommandsOnly(t *testing.T) {
	c, _ := newController(t, "")
	var kinds []string
	c.Subscribe(func(kind string, _ Snapshot) { kinds = append(kinds, kind) })

	_, _ = c.Advance() // rejected: empty view
	_, _, _ = c.Import("a;b\n")
	_, _ = c.SetMode(ModeDictation)

	if len(kinds) != 2 || kinds[0] != "import" || kinds[1] != "mode" {
		t.Errorf("kinds = %v", kinds)
	}
}
