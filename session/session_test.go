// Copyright 2026 The Doula Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"reflect"
	"testing"
)

func sampleDocument() *Document {
	endAt := int64(1700000060000)
	intensity := 3
	location := LocationBack
	doc := New()
	doc.Contractions = []ContractionRecord{
		{
			ID:        "aaaa000011112222",
			StartAt:   1700000000000,
			EndAt:     &endAt,
			Intensity: &intensity,
			Location:  &location,
			Note:      "strong one",
			Flags:     []string{"timed"},
			PhaseRating: &PhaseRating{
				Phase:  "active",
				Rating: 4,
			},
		},
		{
			ID:      "bbbb000011112222",
			StartAt: 1700000300000,
		},
	}
	doc.Events = []LaborEventRecord{
		{ID: "cccc000011112222", Type: EventWaterBroke, At: 1699999000000, Notes: "at home"},
	}
	doc.Meta[MetaSessionStart] = int64(1699998000000)
	doc.Meta[MetaPaused] = false
	doc.Meta[MetaSectionOrder] = []string{"timer", "history"}
	return doc
}

func TestCloneIsDeepAndEqual(t *testing.T) {
	original := sampleDocument()
	cloned := original.Clone()

	if !reflect.DeepEqual(original, cloned) {
		t.Fatal("clone is not equal to original")
	}

	// Mutating the clone must not touch the original.
	*cloned.Contractions[0].EndAt = 42
	cloned.Contractions[0].Flags[0] = "changed"
	cloned.Contractions[0].PhaseRating.Rating = 1
	cloned.Meta[MetaSectionOrder].([]string)[0] = "changed"

	if *original.Contractions[0].EndAt == 42 {
		t.Error("clone shares EndAt pointer with original")
	}
	if original.Contractions[0].Flags[0] == "changed" {
		t.Error("clone shares Flags slice with original")
	}
	if original.Contractions[0].PhaseRating.Rating == 1 {
		t.Error("clone shares PhaseRating pointer with original")
	}
	if original.Meta[MetaSectionOrder].([]string)[0] == "changed" {
		t.Error("clone shares section order slice with original")
	}
}

func TestTwoOpenContractionsAreRepresentable(t *testing.T) {
	// A merge of two replicas can leave two records with nil EndAt.
	// The model must carry both; closing one is a UI decision.
	doc := New()
	doc.Contractions = []ContractionRecord{
		{ID: "a", StartAt: 1},
		{ID: "b", StartAt: 2},
	}
	open := 0
	for _, record := range doc.Contractions {
		if record.EndAt == nil {
			open++
		}
	}
	if open != 2 {
		t.Fatalf("open contractions = %d, want 2", open)
	}
}

func TestNewRecordIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for index := 0; index < 10000; index++ {
		id := NewRecordID()
		if len(id) != 16 {
			t.Fatalf("id %q has length %d, want 16", id, len(id))
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestFindByID(t *testing.T) {
	doc := sampleDocument()
	if record := doc.FindContraction("bbbb000011112222"); record == nil || record.StartAt != 1700000300000 {
		t.Errorf("FindContraction returned %+v", record)
	}
	if doc.FindContraction("missing") != nil {
		t.Error("FindContraction of missing ID returned a record")
	}
	if event := doc.FindEvent("cccc000011112222"); event == nil || event.Type != EventWaterBroke {
		t.Errorf("FindEvent returned %+v", event)
	}
}
