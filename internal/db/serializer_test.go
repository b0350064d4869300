package db

import (
	"errors"
	"testing"
	"time"
)

func TestTextSerializer(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"hello", "hello"},
		{[]byte("raw"), "raw"},
		{true, "true"},
		{42, "42"},
		{int32(-7), "-7"},
		{int64(9000000000), "9000000000"},
		{uint(3), "3"},
		{uint64(18), "18"},
		{1.5, "1.5"},
		{float32(0.25), "0.25"},
		{ts, "2024-03-01T12:00:00Z"},
		{[]int{1, 2}, "[1 2]"},
	}
	s := TextSerializer{}
	for _, tt := range tests {
		got, err := s.Encode(tt.in)
		if err != nil {
			t.Errorf("Encode(%v) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Encode(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJSONSerializer(t *testing.T) {
	s := JSONSerializer{}
	got, err := s.Encode(map[string]int{"a": 1})
	if err != nil || got != `{"a":1}` {
		t.Errorf("Encode = %q, %v", got, err)
	}
	got, _ = s.Encode("x")
	if got != `"x"` {
		t.Errorf("Encode(string) = %q", got)
	}
	if _, err := s.Encode(make(chan int)); err == nil {
		t.Error("expected error for channel")
	}
}

func TestLookupSerializer(t *testing.T) {
	for _, name := range []string{"", "text"} {
		s, err := LookupSerializer(name)
		if err != nil || s.Name() != SerializerText {
			t.Errorf("LookupSerializer(%q) = %v, %v", name, s, err)
		}
	}
	s, err := LookupSerializer("json")
	if err != nil || s.Name() != SerializerJSON {
		t.Errorf("LookupSerializer(json) = %v, %v", s, err)
	}
	if _, err := LookupSerializer("msgpack"); !errors.Is(err, ErrUnknownSerializer) {
		t.Errorf("expected ErrUnknownSerializer, got %v", err)
	}
}
