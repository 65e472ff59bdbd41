package device

import "testing"

type fakeAdapter struct {
	info Info
}

func (f *fakeAdapter) GetDeviceInfo() Info { return f.info }
func (f *fakeAdapter) GetState() State     { return f.info.State }

func TestManagerRegisterAndLookup(t *testing.T) {
	m := NewManager()
	card := &fakeAdapter{info: Info{ID: "card_terminal", Kind: KindPayment, State: StateReady}}
	m.Register("card_terminal", KindPayment, card)

	got, ok := m.Lookup("card_terminal")
	if !ok || got != card {
		t.Fatalf("Lookup(card_terminal) = %v, %v", got, ok)
	}
	if _, ok := m.Lookup("nope"); ok {
		t.Fatal("Lookup(nope) should report false")
	}
}

func TestManagerGetDefaultReturnsFirstRegisteredOfKind(t *testing.T) {
	m := NewManager()
	cash := &fakeAdapter{info: Info{ID: "cash_validator", Kind: KindPayment}}
	card := &fakeAdapter{info: Info{ID: "card_terminal", Kind: KindPayment}}
	m.Register("cash_validator", KindPayment, cash)
	m.Register("card_terminal", KindPayment, card)

	got, ok := m.GetDefault(KindPayment)
	if !ok || got != cash {
		t.Fatalf("GetDefault(payment) = %v, want the first-registered adapter (cash)", got)
	}
	if _, ok := m.GetDefault(KindCamera); ok {
		t.Fatal("GetDefault(camera) should report false when none registered")
	}
}

func TestManagerListIDsByKindPreservesRegistrationOrder(t *testing.T) {
	m := NewManager()
	m.Register("cash_validator", KindPayment, &fakeAdapter{})
	m.Register("camera", KindCamera, &fakeAdapter{})
	m.Register("card_terminal", KindPayment, &fakeAdapter{})

	ids := m.ListIDsByKind(KindPayment)
	want := []string{"cash_validator", "card_terminal"}
	if len(ids) != len(want) {
		t.Fatalf("ListIDsByKind(payment) = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ListIDsByKind(payment) = %v, want %v", ids, want)
		}
	}
}

func TestManagerRegisterReplacesExistingIDWithoutDuplicatingOrder(t *testing.T) {
	m := NewManager()
	first := &fakeAdapter{info: Info{ID: "camera", Kind: KindCamera, State: StateConnecting}}
	second := &fakeAdapter{info: Info{ID: "camera", Kind: KindCamera, State: StateReady}}
	m.Register("camera", KindCamera, first)
	m.Register("camera", KindCamera, second)

	if len(m.AllIDs()) != 1 {
		t.Fatalf("AllIDs() = %v, want exactly one entry", m.AllIDs())
	}
	got, _ := m.Lookup("camera")
	if got != second {
		t.Fatal("Register should replace the adapter for an already-registered id")
	}
}

func TestManagerSnapshotAll(t *testing.T) {
	m := NewManager()
	m.Register("card_terminal", KindPayment, &fakeAdapter{info: Info{ID: "card_terminal", Kind: KindPayment, State: StateReady}})
	m.Register("printer", KindPrinter, &fakeAdapter{info: Info{ID: "printer", Kind: KindPrinter, State: StateError}})

	infos := m.SnapshotAll()
	if len(infos) != 2 {
		t.Fatalf("SnapshotAll() returned %d infos, want 2", len(infos))
	}
	if infos[0].ID != "card_terminal" || infos[1].ID != "printer" {
		t.Fatalf("SnapshotAll() = %+v, want registration order", infos)
	}
}
