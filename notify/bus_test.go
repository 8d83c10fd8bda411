package notify

import (
	"fmt"
	"testing"

	"github.com/closerbase/tasksync/task"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus()

	var got []Event
	unsubscribe := bus.Subscribe(func(ev Event) { got = append(got, ev) })

	bus.Publish(Event{Type: TaskCreated, Task: &task.Task{ID: "t1"}})
	bus.Publish(Event{Type: TaskCompleted, Task: &task.Task{ID: "t1"}})

	if len(got) != 2 {
		t.Fatalf("handler saw %d events, want 2", len(got))
	}
	if got[0].Type != TaskCreated || got[1].Type != TaskCompleted {
		t.Errorf("events = %v, %v; want created then completed", got[0].Type, got[1].Type)
	}

	unsubscribe()
	bus.Publish(Event{Type: TaskSnoozed})
	if len(got) != 2 {
		t.Error("handler still receiving after unsubscribe")
	}
}

func TestBusRecent(t *testing.T) {
	bus := NewBus()
	for i := 0; i < 5; i++ {
		bus.Publish(Event{Type: TaskCreated, Task: &task.Task{ID: fmt.Sprintf("t%d", i)}})
	}

	recent := bus.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("Recent(2) returned %d events", len(recent))
	}
	if recent[0].Task.ID != "t3" || recent[1].Task.ID != "t4" {
		t.Errorf("Recent(2) = %s, %s; want t3, t4", recent[0].Task.ID, recent[1].Task.ID)
	}

	all := bus.Recent(0)
	if len(all) != 5 {
		t.Errorf("Recent(0) returned %d events, want 5", len(all))
	}
}

func TestBusHistoryCap(t *testing.T) {
	bus := NewBus()
	for i := 0; i < 250; i++ {
		bus.Publish(Event{Type: SyncCompleted, Created: i})
	}

	all := bus.Recent(0)
	if len(all) != 200 {
		t.Fatalf("history length = %d, want capped at 200", len(all))
	}
	if all[0].Created != 50 {
		t.Errorf("oldest kept event = %d, want 50", all[0].Created)
	}
}
