package dispatch

import (
	"testing"
	"time"
)

// allDay keeps a test agent permanently inside its shift.
var allDay = NewWindow(0, 0, 24, 0, time.UTC)

func testAgent(id string, team Team, level Seniority, now time.Time) *Agent {
	a := NewAgent(id, id, team, level, allDay)
	a.refreshShift(now)
	return a
}

func TestMaxConcurrentBySeniority(t *testing.T) {
	want := map[Seniority]int{
		SeniorityJunior:   4,
		SeniorityMidLevel: 6,
		SenioritySenior:   8,
		SeniorityTeamLead: 5,
	}
	for level, max := range want {
		a := NewAgent("a", "a", TeamA, level, allDay)
		if got := a.MaxConcurrent(); got != max {
			t.Errorf("%s: got %d, want %d", level, got, max)
		}
	}
}

func TestReserveConfirmRelease(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	a := testAgent("junior", TeamA, SeniorityJunior, now)

	if !a.TryReserve() {
		t.Fatal("reserve on empty agent should succeed")
	}
	if a.Reserved() != 1 || a.Current() != 0 {
		t.Fatalf("after reserve: reserved=%d current=%d", a.Reserved(), a.Current())
	}
	if !a.ConfirmReservation() {
		t.Fatal("confirm with a held reservation should succeed")
	}
	if a.Reserved() != 0 || a.Current() != 1 {
		t.Fatalf("after confirm: reserved=%d current=%d", a.Reserved(), a.Current())
	}
	if a.ConfirmReservation() {
		t.Fatal("confirm without a reservation should fail")
	}

	// Release without a reservation is a safe no-op.
	a.ReleaseReservation()
	if a.Reserved() != 0 {
		t.Fatalf("release underflow: reserved=%d", a.Reserved())
	}
}

func TestReserveStopsAtCapacity(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	a := testAgent("junior", TeamA, SeniorityJunior, now)

	for i := 0; i < 4; i++ {
		if !a.TryReserve() {
			t.Fatalf("reserve %d should succeed", i)
		}
	}
	if a.TryReserve() {
		t.Fatal("fifth reserve on a junior must fail")
	}
	if a.Available() != 0 {
		t.Fatalf("available should be 0, got %d", a.Available())
	}
}

func TestReservedPlusCurrentBoundsAcceptance(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	a := testAgent("junior", TeamA, SeniorityJunior, now)

	a.TryReserve()
	a.TryReserve()
	a.ConfirmReservation()
	// current=1 reserved=1, two free slots left
	if a.Available() != 2 {
		t.Fatalf("available: got %d, want 2", a.Available())
	}
	a.AssignDirect()
	a.AssignDirect()
	// current=3 reserved=1, full
	if a.CanAccept() {
		t.Fatal("agent at capacity must not accept")
	}
	if a.AssignDirect() {
		t.Fatal("direct assign at capacity must fail")
	}
}

func TestCompleteChatFloor(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	a := testAgent("junior", TeamA, SeniorityJunior, now)
	if a.CompleteChat() {
		t.Fatal("complete with no chats should report false")
	}
	a.AssignDirect()
	if !a.CompleteChat() {
		t.Fatal("complete should release the chat")
	}
	if a.Current() != 0 {
		t.Fatalf("current should be 0, got %d", a.Current())
	}
}

func TestOffShiftAgentRejectsWork(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	a := NewAgent("a", "a", TeamA, SeniorityJunior, NewWindow(0, 0, 8, 0, time.UTC))
	a.refreshShift(now)
	if a.Active() || a.CanAccept() || a.TryReserve() {
		t.Fatal("agent outside its shift must be inactive and rejecting")
	}
}

func TestShiftHandoffMargin(t *testing.T) {
	shift := NewWindow(8, 0, 16, 0, time.UTC)
	a := NewAgent("a", "a", TeamA, SeniorityJunior, shift)

	a.refreshShift(time.Date(2026, 3, 2, 15, 54, 0, 0, time.UTC))
	if !a.Active() || !a.AcceptingNewChats() {
		t.Fatal("6 minutes before shift end the agent still accepts")
	}

	a.refreshShift(time.Date(2026, 3, 2, 15, 56, 0, 0, time.UTC))
	if !a.Active() {
		t.Fatal("agent is still on shift")
	}
	if a.AcceptingNewChats() {
		t.Fatal("inside the handoff margin the agent stops accepting")
	}
}
