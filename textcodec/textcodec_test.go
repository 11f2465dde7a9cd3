package textcodec

import (
	"reflect"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"hello",
		"こんにちは",
		"a　b！c",
		"\U0001F600", // outside BMP, still under MaxCodePoint
	}
	for _, s := range cases {
		cp := Decode([]byte(s))
		got := Encode(cp)
		if string(got) != s {
			t.Errorf("round trip %q: got %q", s, got)
		}
	}
}

func TestDecodeCodePoints(t *testing.T) {
	got := Decode([]byte("ab"))
	want := []rune{'a', 'b'}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v want %v", got, want)
	}
}

func TestDecodeMalformedPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on malformed UTF-8")
		}
	}()
	Decode([]byte{0xff, 0xfe})
}

func TestValid(t *testing.T) {
	if !Valid([]byte("hello world")) {
		t.Error("expected valid")
	}
	if Valid([]byte{0xff, 0xfe}) {
		t.Error("expected invalid")
	}
}
