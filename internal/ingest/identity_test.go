package ingest

import (
	"reflect"
	"testing"

	"github.com/pheld/f1load/internal/model"
)

func TestResolveIdentity_OrderedTuple(t *testing.T) {
	rec := model.Record{
		"session_key":   float64(9161),
		"driver_number": float64(44),
		"lap_number":    float64(3),
		"lap_duration":  91.2,
	}

	id := ResolveIdentity(rec, []string{"session_key", "driver_number", "lap_number"})
	want := model.Identity{float64(9161), float64(44), float64(3)}
	if !reflect.DeepEqual(id, want) {
		t.Fatalf("identity = %v, want %v", id, want)
	}
	if id.String() != "9161/44/3" {
		t.Errorf("identity string = %q", id.String())
	}
}

func TestResolveIdentity_MissingFieldIsAbsent(t *testing.T) {
	rec := model.Record{"session_key": float64(9161)}

	id := ResolveIdentity(rec, []string{"session_key", "driver_number"})
	if len(id) != 2 {
		t.Fatalf("identity length = %d, want 2", len(id))
	}
	if id[1] != Absent {
		t.Errorf("missing field resolved to %v, want Absent", id[1])
	}
	if id.String() != "9161/<absent>" {
		t.Errorf("identity string = %q", id.String())
	}
}

func TestResolveIdentity_NullTreatedAsAbsent(t *testing.T) {
	rec := model.Record{"session_key": nil, "driver_number": float64(44)}

	id := ResolveIdentity(rec, []string{"session_key", "driver_number"})
	if id[0] != Absent {
		t.Errorf("null field resolved to %v, want Absent", id[0])
	}
}

func TestResolveIdentity_StableAcrossNonKeyFields(t *testing.T) {
	keys := []string{"session_key", "driver_number"}
	a := model.Record{"session_key": float64(1), "driver_number": float64(44), "team": "Mercedes"}
	b := model.Record{"session_key": float64(1), "driver_number": float64(44), "team": "Ferrari", "extra": true}

	if ResolveIdentity(a, keys).String() != ResolveIdentity(b, keys).String() {
		t.Error("identities differ for records with identical key fields")
	}
}

func TestMissingKeyFields(t *testing.T) {
	tests := []struct {
		name string
		rec  model.Record
		want []string
	}{
		{"all present", model.Record{"a": 1, "b": 2}, nil},
		{"one missing", model.Record{"a": 1}, []string{"b"}},
		{"null counts as missing", model.Record{"a": nil, "b": 2}, []string{"a"}},
		{"empty record", model.Record{}, []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MissingKeyFields(tt.rec, []string{"a", "b"})
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("missing = %v, want %v", got, tt.want)
			}
		})
	}
}
