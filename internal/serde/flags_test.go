package serde

import (
	"errors"
	"testing"

	"dfserde/internal/engine"
)

func TestEncodeFlags(t *testing.T) {
	tests := []struct {
		flags engine.Flags
		want  string
	}{
		{0, ""},
		{engine.SortedAsc, "SORTED_ASC"},
		{engine.SortedDesc, "SORTED_DSC"},
		{engine.FastExplodeList, "FAST_EXPLODE_LIST"},
		{engine.FastExplodeList | engine.SortedAsc, "SORTED_ASC|FAST_EXPLODE_LIST"},
	}
	for _, tt := range tests {
		if got := EncodeFlags(tt.flags); got != tt.want {
			t.Errorf("EncodeFlags(%v) = %q, want %q", tt.flags, got, tt.want)
		}
	}
}

func TestDecodeFlags(t *testing.T) {
	tests := []struct {
		in      string
		want    engine.Flags
		wantErr bool
	}{
		{"", 0, false},
		{"SORTED_ASC", engine.SortedAsc, false},
		{"FAST_EXPLODE_LIST|SORTED_DSC", engine.SortedDesc | engine.FastExplodeList, false},
		{" SORTED_ASC | FAST_EXPLODE_LIST ", engine.SortedAsc | engine.FastExplodeList, false},
		{"SORTED_ASC||", engine.SortedAsc, false},
		{"SORTED_ASC|SORTED_ASC", engine.SortedAsc, false},
		{"sorted_asc", 0, true},
		{"SORTED_ASC|BOGUS", 0, true},
		{"SORTED_ASC|SORTED_DSC", 0, true},
	}
	for _, tt := range tests {
		got, err := DecodeFlags(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrFlagDecode) {
				t.Errorf("DecodeFlags(%q) error = %v, want ErrFlagDecode", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("DecodeFlags(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("DecodeFlags(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
