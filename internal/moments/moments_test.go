package moments

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/models"
	"github.com/satoshiyanada888/Today-s-MLB-Games/internal/storage"
)

func fp(v float64) *float64 { return &v }
func ip(v int) *int         { return &v }

func newTestDetector(t *testing.T, store storage.Records) (*Detector, *time.Time) {
	t.Helper()
	d := New(store, DefaultConfig())
	now := time.Date(2026, 4, 1, 20, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }
	d.Load("745001")
	return d, &now
}

func obs(seq int, home, drama float64) Observation {
	return Observation{
		Sample: &models.WinProbabilitySample{
			AtBatSequence: ip(seq),
			HomeWinProb:   fp(home),
			AwayWinProb:   fp(100 - home),
			DramaIndex:    fp(drama),
			Inning:        ip(7),
			Description:   "Freeman doubles to deep right.",
		},
		Level: models.LevelWarm,
	}
}

func TestObserve_SpikeCauses(t *testing.T) {
	tests := []struct {
		name  string
		first Observation
		next  Observation
		spike bool
	}{
		{"small swing", obs(1, 50, 10), obs(2, 54, 10), false},
		{"wp swing", obs(1, 50, 10), obs(2, 57, 10), true},
		{"wp drop", obs(1, 57, 10), obs(2, 50, 10), true},
		{"drama", obs(1, 50, 10), obs(2, 50, 125), true},
		{
			"leverage",
			obs(1, 50, 10),
			Observation{Sample: &models.WinProbabilitySample{AtBatSequence: ip(2), LeverageIndex: fp(2.9)}},
			true,
		},
		{
			"insane meter",
			obs(1, 50, 10),
			Observation{Sample: &models.WinProbabilitySample{AtBatSequence: ip(2)}, Level: models.LevelInsane},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newTestDetector(t, storage.NewMemory())
			if _, ok := d.Observe(tt.first); ok {
				t.Fatal("first sample has no prior and no spike signal")
			}
			_, ok := d.Observe(tt.next)
			if ok != tt.spike {
				t.Errorf("spike = %v, want %v", ok, tt.spike)
			}
		})
	}
}

func TestObserve_DedupBySequence(t *testing.T) {
	d, now := newTestDetector(t, storage.NewMemory())

	if _, ok := d.Observe(obs(4, 50, 200)); !ok {
		t.Fatal("expected a moment")
	}
	*now = now.Add(time.Minute)
	// Same at-bat, still a spike and outside cooldown: ignored.
	if _, ok := d.Observe(obs(4, 70, 300)); ok {
		t.Fatal("duplicate at-bat produced a second moment")
	}
	if _, ok := d.Observe(obs(3, 20, 300)); ok {
		t.Fatal("older at-bat produced a moment")
	}
	if n := len(d.Moments()); n != 1 {
		t.Errorf("got %d moments, want 1", n)
	}
}

func TestObserve_Cooldown(t *testing.T) {
	d, now := newTestDetector(t, storage.NewMemory())

	d.Observe(obs(1, 50, 200))
	*now = now.Add(19 * time.Second)
	if _, ok := d.Observe(obs(2, 50, 200)); ok {
		t.Fatal("spike within 20s cooldown accepted")
	}
	*now = now.Add(2 * time.Second)
	if _, ok := d.Observe(obs(3, 50, 200)); !ok {
		t.Fatal("spike after cooldown rejected")
	}
}

func TestObserve_TruncatesAndPersists(t *testing.T) {
	store := storage.NewMemory()
	d, now := newTestDetector(t, store)

	for seq := 1; seq <= 30; seq++ {
		*now = now.Add(time.Minute)
		if _, ok := d.Observe(obs(seq, 50, 150)); !ok {
			t.Fatalf("at-bat %d: expected moment", seq)
		}
	}
	feed := d.Moments()
	if len(feed) != 25 {
		t.Fatalf("feed has %d moments, want 25", len(feed))
	}
	if feed[0].AtBat != 30 || feed[24].AtBat != 6 {
		t.Errorf("feed not newest-first: first=%d last=%d", feed[0].AtBat, feed[24].AtBat)
	}

	var stored models.MomentFeed
	if ok, err := store.GetRecord(RecordKey, &stored); !ok || err != nil {
		t.Fatalf("feed not persisted: %v %v", ok, err)
	}
	if stored.GameID != "745001" || len(stored.Moments) != 25 {
		t.Errorf("persisted feed = %s/%d", stored.GameID, len(stored.Moments))
	}
}

func TestLoad_Reconcile(t *testing.T) {
	store := storage.NewMemory()
	d, now := newTestDetector(t, store)
	d.Observe(obs(9, 50, 200))

	reloaded := New(store, DefaultConfig())
	reloaded.now = func() time.Time { return now.Add(5 * time.Second) }
	if got := reloaded.Load("745001"); len(got) != 1 {
		t.Fatalf("reload restored %d moments", len(got))
	}
	// Persisted at-bat and cooldown survive the reload.
	if _, ok := reloaded.Observe(obs(9, 80, 300)); ok {
		t.Error("reloaded detector re-accepted a persisted at-bat")
	}
	if _, ok := reloaded.Observe(obs(10, 50, 300)); ok {
		t.Error("reloaded detector ignored the persisted cooldown")
	}

	other := New(store, DefaultConfig())
	if got := other.Load("999999"); len(got) != 0 {
		t.Fatalf("moments of another game leaked: %d", len(got))
	}
	var stored models.MomentFeed
	if ok, _ := store.GetRecord(RecordKey, &stored); ok {
		t.Error("stale feed should be deleted")
	}
}

func TestLoad_RestoresSwingBaseline(t *testing.T) {
	store := storage.NewMemory()
	d, now := newTestDetector(t, store)
	if _, ok := d.Observe(obs(1, 50, 10)); ok {
		t.Fatal("quiet first at-bat accepted")
	}

	var stored models.MomentFeed
	if ok, _ := store.GetRecord(RecordKey, &stored); !ok || stored.LastSeq == nil || *stored.LastSeq != 1 ||
		stored.LastHomeWinProb == nil || *stored.LastHomeWinProb != 50 {
		t.Fatalf("baseline not persisted: %+v", stored)
	}

	reloaded := New(store, DefaultConfig())
	reloaded.now = func() time.Time { return now.Add(time.Minute) }
	reloaded.Load("745001")
	if _, ok := reloaded.Observe(obs(1, 90, 10)); ok {
		t.Error("persisted at-bat accepted again")
	}
	m, ok := reloaded.Observe(obs(2, 70, 10))
	if !ok {
		t.Fatal("20 point swing after reload was missed")
	}
	if !strings.Contains(m.Headline, "20") {
		t.Errorf("headline should carry the swing: %q", m.Headline)
	}
}

func TestNew_ZeroConfigUsesDefaults(t *testing.T) {
	d := New(storage.NewMemory(), Config{})
	if d.config != DefaultConfig() {
		t.Fatalf("config = %+v", d.config)
	}
	d.Load("745001")
	d.Observe(obs(1, 50, 10))
	if _, ok := d.Observe(obs(2, 51, 10)); ok {
		t.Error("a one point swing is not a spike")
	}
}

func TestReveal(t *testing.T) {
	store := storage.NewMemory()
	d, _ := newTestDetector(t, store)
	m, _ := d.Observe(obs(1, 50, 200))

	got, err := d.Reveal(m.ID)
	if err != nil || !got.Revealed {
		t.Fatalf("Reveal = %+v, %v", got, err)
	}
	var stored models.MomentFeed
	store.GetRecord(RecordKey, &stored)
	if !stored.Moments[0].Revealed {
		t.Error("reveal not persisted")
	}
	if got, _ := d.Reveal(m.ID); got.Revealed {
		t.Error("second reveal should toggle back")
	}
	if _, err := d.Reveal("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

type brokenStore struct{}

func (brokenStore) PutRecord(string, any) error         { return errors.New("disk full") }
func (brokenStore) GetRecord(string, any) (bool, error) { return false, errors.New("disk gone") }
func (brokenStore) DeleteRecord(string) error           { return errors.New("disk gone") }

func TestObserve_PersistenceFailureKeepsMemory(t *testing.T) {
	d, _ := newTestDetector(t, brokenStore{})
	if _, ok := d.Observe(obs(1, 50, 200)); !ok {
		t.Fatal("expected a moment despite storage failure")
	}
	if len(d.Moments()) != 1 {
		t.Error("in-memory feed lost after persistence failure")
	}
}

func TestHeadline(t *testing.T) {
	s := &models.WinProbabilitySample{DramaIndex: fp(131), LeverageIndex: fp(3.1)}
	tests := []struct {
		swing float64
		want  string
	}{
		{8.4, "Home win probability jumps 8 pts"},
		{-6, "Home win probability drops 6 pts"},
		{2, "Drama index hits 131"},
	}
	for _, tt := range tests {
		if got := Headline(tt.swing, 6, s); got != tt.want {
			t.Errorf("Headline(%v) = %q, want %q", tt.swing, got, tt.want)
		}
	}
	if got := Headline(0, 6, &models.WinProbabilitySample{LeverageIndex: fp(3.1)}); !strings.Contains(got, "3.1") {
		t.Errorf("leverage headline = %q", got)
	}
	if Headline(1, 6, nil) == "" {
		t.Error("headline must never be empty")
	}
}

func TestMomentID(t *testing.T) {
	ts := time.Date(2026, 4, 1, 20, 0, 0, 0, time.UTC)
	a := MomentID("745001", 12, ts)
	if a != MomentID("745001", 12, ts) {
		t.Error("MomentID is not stable")
	}
	if a == MomentID("745001", 13, ts) || a == MomentID("745001", 12, ts.Add(time.Millisecond)) {
		t.Error("MomentID collides across at-bats or timestamps")
	}
}
