package pack

import "testing"

func TestUnpackOrder(t *testing.T) {
	u, err := NewUnpacker(2)
	if err != nil {
		t.Fatal(err)
	}
	got := u.Work([]byte{0b11_01_00_10})
	want := []byte{3, 1, 0, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unpack = %v, want %v", got, want)
		}
	}
}

func TestRoundTripAcrossWindows(t *testing.T) {
	u, _ := NewUnpacker(2)
	p, _ := NewPacker(2)

	input := []byte{0x7e, 0x6d, 0x75, 0x73, 0xff, 0x00, 0xa5}
	groups := u.Work(input)

	// Deliver the group stream in deliberately awkward window sizes.
	var packed []byte
	for _, n := range []int{1, 3, 5, 7, 2, 4, 6} {
		if n > len(groups) {
			n = len(groups)
		}
		packed = append(packed, p.Work(groups[:n])...)
		groups = groups[n:]
	}
	packed = append(packed, p.Work(groups)...)

	if len(packed) != len(input) {
		t.Fatalf("packed %d bytes, want %d", len(packed), len(input))
	}
	for i := range input {
		if packed[i] != input[i] {
			t.Fatalf("packed = %x, want %x", packed, input)
		}
	}
}

func TestSymbolUnpackerWidensToBits(t *testing.T) {
	s, err := NewSymbolUnpacker(2)
	if err != nil {
		t.Fatal(err)
	}
	got := s.Work([]byte{0b10, 0b01, 0b11, 0b00})
	want := []byte{1, 0, 0, 1, 1, 1, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bits = %v, want %v", got, want)
		}
	}
}

func TestInvalidGroupWidth(t *testing.T) {
	for _, k := range []int{0, 3, 5, 9, -1} {
		if _, err := NewUnpacker(k); err == nil {
			t.Errorf("NewUnpacker(%d) accepted invalid width", k)
		}
		if _, err := NewPacker(k); err == nil {
			t.Errorf("NewPacker(%d) accepted invalid width", k)
		}
	}
}
