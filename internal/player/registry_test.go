package player

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func registryFixture() (*Registry, func(guildID string) (*Session, *fakeTransport)) {
	reg := NewRegistry(zerolog.Nop())
	factory := func(guildID string) (*Session, *fakeTransport) {
		tr := &fakeTransport{}
		sess := NewSession(SessionOptions{
			GuildID:   guildID,
			Transport: tr,
			Notifier:  &fakeNotifier{},
			Uploader:  &fakeUploader{},
			Logger:    zerolog.Nop(),
			Clock:     time.Now,
		})
		return sess, tr
	}
	return reg, factory
}

func TestRegistryGetOrCreateReuses(t *testing.T) {
	reg, build := registryFixture()

	first, err := reg.GetOrCreate("g1", func() (*Session, error) {
		s, _ := build("g1")
		return s, nil
	})
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	t.Cleanup(first.Disconnect)

	calls := 0
	second, err := reg.GetOrCreate("g1", func() (*Session, error) {
		calls++
		s, _ := build("g1")
		return s, nil
	})
	if err != nil {
		t.Fatalf("GetOrCreate second: %v", err)
	}
	if second != first {
		t.Fatal("GetOrCreate must return the existing session")
	}
	if calls != 0 {
		t.Fatalf("factory ran %d times for an existing session", calls)
	}
	if reg.Len() != 1 {
		t.Fatalf("registry len = %d, want 1", reg.Len())
	}
}

func TestRegistryFactoryFailureRegistersNothing(t *testing.T) {
	reg, _ := registryFixture()

	boom := errors.New("voice join failed")
	_, err := reg.GetOrCreate("g1", func() (*Session, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want factory error", err)
	}
	if reg.Len() != 0 {
		t.Fatalf("registry len = %d after failed factory, want 0", reg.Len())
	}
}

func TestRegistrySessionRemovesItselfOnTeardown(t *testing.T) {
	reg, _ := registryFixture()

	tr := &fakeTransport{}
	sess, err := reg.GetOrCreate("g1", func() (*Session, error) {
		return NewSession(SessionOptions{
			GuildID:     "g1",
			Transport:   tr,
			Notifier:    &fakeNotifier{},
			Logger:      zerolog.Nop(),
			IdleTimeout: 20 * time.Millisecond,
			Clock:       time.Now,
		}), nil
	})
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	// Idle timeout tears the session down, which must deregister it.
	waitFor(t, "self removal", func() bool { return reg.Get("g1") == nil })
	if reg.Len() != 0 {
		t.Fatalf("registry len = %d, want 0", reg.Len())
	}
	_ = sess
}

func TestRegistryRemoveMissingIsNoop(t *testing.T) {
	reg, _ := registryFixture()
	reg.Remove("nope")
	if reg.Len() != 0 {
		t.Fatal("Remove on empty registry changed state")
	}
}

func TestRegistryStopAll(t *testing.T) {
	reg, build := registryFixture()

	transports := make(map[string]*fakeTransport)
	for _, g := range []string{"g1", "g2", "g3"} {
		g := g
		if _, err := reg.GetOrCreate(g, func() (*Session, error) {
			s, tr := build(g)
			transports[g] = tr
			return s, nil
		}); err != nil {
			t.Fatalf("GetOrCreate %s: %v", g, err)
		}
	}

	if got := reg.GuildIDs(); len(got) != 3 || got[0] != "g1" || got[2] != "g3" {
		t.Fatalf("GuildIDs = %v", got)
	}

	reg.StopAll("shutting down")

	if reg.Len() != 0 {
		t.Fatalf("registry len after StopAll = %d, want 0", reg.Len())
	}
	for g, tr := range transports {
		if tr.closeCount() != 1 {
			t.Fatalf("transport %s closes = %d, want 1", g, tr.closeCount())
		}
	}
}
