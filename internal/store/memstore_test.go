package store

import (
	"testing"
	"time"

	"cross-matrix/internal/room"
)

func TestMemoryStoreCopiesRooms(t *testing.T) {
	mem := NewMemoryStore()
	r := room.NewRoom("4821", time.Now())
	r.Players = append(r.Players, "x")
	mem.SaveRoom(r)

	r.Players = append(r.Players, "y")
	got, ok := mem.GetRoom("4821")
	if !ok {
		t.Fatalf("room not found")
	}
	if len(got.Players) != 1 {
		t.Fatalf("caller mutation leaked into store: %v", got.Players)
	}

	got.Spectators = append(got.Spectators, "z")
	again, _ := mem.GetRoom("4821")
	if len(again.Spectators) != 0 {
		t.Fatalf("reader mutation leaked into store: %v", again.Spectators)
	}
}

func TestMemoryStoreListAndDelete(t *testing.T) {
	mem := NewMemoryStore()
	for _, id := range []string{"3000", "1000", "2000"} {
		mem.SaveRoom(room.NewRoom(id, time.Now()))
	}
	list := mem.ListRooms()
	if len(list) != 3 || list[0].ID != "1000" || list[2].ID != "3000" {
		t.Fatalf("list order = %v", []string{list[0].ID, list[1].ID, list[2].ID})
	}
	mem.DeleteRoom("2000")
	if _, ok := mem.GetRoom("2000"); ok {
		t.Fatalf("deleted room still present")
	}
	if mem.Len() != 2 {
		t.Fatalf("len = %d", mem.Len())
	}
}
