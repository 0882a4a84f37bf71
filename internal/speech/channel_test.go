package speech

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/metrovox/internal/domain"
	"github.com/hammamikhairi/metrovox/internal/logger"
)

func setupChannel(t *testing.T, synth *fakeSynth, sink *recordingSink, opts ...ChannelOption) (*Channel, context.Context) {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	ch := NewChannel(synth, testResolver(), sink, log, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ch.Start(ctx)
	return ch, ctx
}

func TestChannelPlaysInSubmissionOrder(t *testing.T) {
	synth := &fakeSynth{}
	sink := newRecordingSink()
	ch, _ := setupChannel(t, synth, sink)

	ch.Submit(entryUtts("甲", "A", 200*time.Millisecond)...)
	ch.Submit(entryUtts("乙", "B", 200*time.Millisecond)...)

	want := []string{"甲", "<silence 200ms>", "A", "乙", "<silence 200ms>", "B"}
	if !waitFor(func() bool { return len(sink.snapshot()) == len(want) }) {
		t.Fatalf("timed out, played %v", sink.snapshot())
	}
	if got := sink.snapshot(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if !waitFor(func() bool { return !ch.IsSpeaking() }) {
		t.Fatal("channel still speaking after queue drained")
	}
}

func TestChannelResolvesVoicePerLocale(t *testing.T) {
	synth := &fakeSynth{}
	sink := newRecordingSink()
	ch, _ := setupChannel(t, synth, sink)

	ch.Submit(entryUtts("車門即將關閉。", "Doors closing.", 0)...)
	if !waitFor(func() bool { return synth.callCount() == 2 }) {
		t.Fatalf("expected 2 synth calls, got %d", synth.callCount())
	}

	synth.mu.Lock()
	defer synth.mu.Unlock()
	if synth.voices[0].Name != "zh-voice" || synth.voices[1].Name != "en-voice" {
		t.Fatalf("unexpected voices: %+v", synth.voices)
	}
	if synth.calls[0].ID == "" || synth.calls[0].ID == synth.calls[1].ID {
		t.Fatalf("expected distinct utterance IDs, got %q and %q", synth.calls[0].ID, synth.calls[1].ID)
	}
}

func TestChannelStopAllClearsQueue(t *testing.T) {
	synth := &fakeSynth{}
	sink := newRecordingSink()
	sink.block = true
	ch, _ := setupChannel(t, synth, sink)

	ch.Submit(entryUtts("甲", "A", 200*time.Millisecond)...)
	ch.Submit(entryUtts("乙", "B", 200*time.Millisecond)...)

	select {
	case first := <-sink.started:
		if first != "甲" {
			t.Fatalf("expected first utterance to start, got %q", first)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("playback never started")
	}

	ch.StopAll(domain.BoundaryImmediate)
	if n := ch.QueueLen(); n != 0 {
		t.Fatalf("expected empty queue after stop, got %d", n)
	}
	if !waitFor(func() bool { return !ch.IsSpeaking() }) {
		t.Fatal("channel still speaking after stop")
	}

	ch.Submit(entryUtts("丙", "C", 200*time.Millisecond)...)

	want := []string{"甲", "丙", "<silence 200ms>", "C"}
	if !waitFor(func() bool { return len(sink.snapshot()) == len(want) }) {
		t.Fatalf("timed out, played %v", sink.snapshot())
	}
	// Give stale work a chance to show up.
	time.Sleep(50 * time.Millisecond)
	if got := sink.snapshot(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestChannelStopAllWhileIdle(t *testing.T) {
	synth := &fakeSynth{}
	sink := newRecordingSink()
	ch, _ := setupChannel(t, synth, sink)

	ch.StopAll(domain.BoundaryWord)
	ch.StopAll(domain.BoundaryImmediate)

	if ch.IsSpeaking() || ch.QueueLen() != 0 {
		t.Fatal("idle stop changed channel state")
	}

	ch.Submit(entryUtts("丙", "C", 0)...)
	want := []string{"丙", "C"}
	if !waitFor(func() bool { return len(sink.snapshot()) == len(want) }) {
		t.Fatalf("timed out, played %v", sink.snapshot())
	}
	if got := sink.snapshot(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestChannelWordBoundaryGrace(t *testing.T) {
	synth := &fakeSynth{}
	sink := newRecordingSink()
	sink.block = true
	ch, _ := setupChannel(t, synth, sink, WithWordGrace(60*time.Millisecond))

	ch.Submit(entryUtts("甲", "A", 0)...)
	<-sink.started

	start := time.Now()
	ch.StopAll(domain.BoundaryWord)
	if elapsed := time.Since(start); elapsed > 30*time.Millisecond {
		t.Fatalf("StopAll blocked for %s", elapsed)
	}

	if !waitFor(func() bool { return !ch.IsSpeaking() }) {
		t.Fatal("channel still speaking after word stop")
	}
	sink.mu.Lock()
	cut := sink.cutAfter
	sink.mu.Unlock()
	if cut < 50*time.Millisecond {
		t.Fatalf("expected audio to run for the grace window, cut after %s", cut)
	}
	if got := sink.snapshot(); !reflect.DeepEqual(got, []string{"甲"}) {
		t.Fatalf("expected only the interrupted utterance, got %v", got)
	}
}

func TestChannelStopDoesNotWaitForSlowSynthesis(t *testing.T) {
	synth := &fakeSynth{stall: map[string]time.Duration{"甲": 500 * time.Millisecond}}
	sink := newRecordingSink()
	ch, _ := setupChannel(t, synth, sink)

	ch.Submit(entryUtts("甲", "A", 0)...)
	if !waitFor(func() bool { return ch.IsSpeaking() && ch.QueueLen() == 1 }) {
		t.Fatal("synthesis never started")
	}

	start := time.Now()
	ch.StopAll(domain.BoundaryImmediate)
	ch.Submit(entryUtts("丙", "C", 0)...)

	select {
	case first := <-sink.started:
		if first != "丙" {
			t.Fatalf("expected 丙 first, got %s", first)
		}
		if elapsed := time.Since(start); elapsed > 250*time.Millisecond {
			t.Fatalf("new announcement waited %s behind a stopped synthesis", elapsed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("playback never started")
	}

	if !waitFor(func() bool { return len(sink.snapshot()) == 2 }) {
		t.Fatalf("timed out, played %v", sink.snapshot())
	}
	if got := sink.snapshot(); !reflect.DeepEqual(got, []string{"丙", "C"}) {
		t.Fatalf("expected [丙 C], got %v", got)
	}
}

func TestChannelSkipsFailedSynthesis(t *testing.T) {
	synth := &fakeSynth{fail: map[string]bool{"壞": true}}
	sink := newRecordingSink()
	ch, _ := setupChannel(t, synth, sink)

	ch.Submit(entryUtts("壞", "Broken", 0)...)

	if !waitFor(func() bool { return len(sink.snapshot()) == 1 }) {
		t.Fatalf("timed out, played %v", sink.snapshot())
	}
	if got := sink.snapshot(); got[0] != "Broken" {
		t.Fatalf("expected english utterance to still play, got %v", got)
	}
}

func TestChannelBatchesDoNotInterleave(t *testing.T) {
	synth := &fakeSynth{}
	sink := newRecordingSink()
	ch, _ := setupChannel(t, synth, sink)

	const producers = 8
	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ch.Submit(entryUtts(fmt.Sprintf("中%d", i), fmt.Sprintf("en%d", i), 0)...)
		}(i)
	}
	wg.Wait()

	if !waitFor(func() bool { return len(sink.snapshot()) == 2*producers }) {
		t.Fatalf("timed out, played %v", sink.snapshot())
	}
	got := sink.snapshot()
	for i := 0; i < len(got); i += 2 {
		var n int
		if _, err := fmt.Sscanf(got[i], "中%d", &n); err != nil {
			t.Fatalf("position %d: expected mandarin utterance, got %q", i, got[i])
		}
		if want := fmt.Sprintf("en%d", n); got[i+1] != want {
			t.Fatalf("position %d: expected %q after %q, got %q", i+1, want, got[i], got[i+1])
		}
	}
}

func TestChannelUsesCache(t *testing.T) {
	synth := &fakeSynth{}
	sink := newRecordingSink()
	ch, _ := setupChannel(t, synth, sink)

	ch.Submit(entryUtts("甲", "A", 0)...)
	ch.Submit(entryUtts("甲", "A", 0)...)

	if !waitFor(func() bool { return len(sink.snapshot()) == 4 }) {
		t.Fatalf("timed out, played %v", sink.snapshot())
	}
	if n := synth.callCount(); n != 2 {
		t.Fatalf("expected 2 synth calls with caching, got %d", n)
	}
	if hits, _ := ch.Cache().Stats(); hits != 2 {
		t.Fatalf("expected 2 cache hits, got %d", hits)
	}
}

func TestChannelPrefetch(t *testing.T) {
	synth := &fakeSynth{}
	sink := newRecordingSink()
	log := logger.New(logger.LevelOff, nil)
	ch := NewChannel(synth, testResolver(), sink, log)

	ch.Prefetch(context.Background(), entryUtts("甲", "A", 0)...)
	if !waitFor(func() bool { return ch.Cache().Len() == 2 }) {
		t.Fatalf("expected 2 cached entries, got %d", ch.Cache().Len())
	}
}

func TestSplitChunks(t *testing.T) {
	tests := []struct {
		name string
		text string
		size int
		want []string
	}{
		{"disabled", "一。二。", 0, []string{"一。二。"}},
		{"short", "Doors closing.", 50, []string{"Doors closing."}},
		{"cjk", "下一站，台北車站。請在本站轉乘。謝謝。", 10, []string{"下一站，台北車站。", "請在本站轉乘。謝謝。"}},
		{"latin", "Next station. Please transfer here. Thank you.", 20, []string{"Next station.", "Please transfer here.", "Thank you."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := splitChunks(tt.text, tt.size); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
