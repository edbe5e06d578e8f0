package hash

import "testing"

func TestLookupDeterministic(t *testing.T) {
	families := []ID{CRC32, EJB, PHONG, OZ, TOREK, FNV32, STL, MD5, SHA1, Jenkins, Hsieh, XXHash}
	key := []byte("the quick brown fox jumps over the lazy dog")

	for _, id := range families {
		fn := Lookup(id)
		a := fn(key)
		b := fn(key)
		if a != b {
			t.Errorf("%s: hash not deterministic: %d != %d", Name(id), a, b)
		}
	}
}

func TestHashesDiffer(t *testing.T) {
	key1 := []byte("alpha")
	key2 := []byte("beta")

	for _, id := range []ID{CRC32, EJB, PHONG, OZ, TOREK, FNV32, STL, Jenkins, Hsieh, XXHash} {
		fn := Lookup(id)
		if fn(key1) == fn(key2) {
			t.Errorf("%s: expected distinct keys to hash differently (collision is allowed in theory but not for these fixtures)", Name(id))
		}
	}
}

func TestEmptyKey(t *testing.T) {
	for _, id := range []ID{CRC32, EJB, PHONG, OZ, TOREK, FNV32, STL, MD5, SHA1, Jenkins, Hsieh, XXHash} {
		fn := Lookup(id)
		// must not panic on an empty key
		_ = fn(nil)
		_ = fn([]byte{})
	}
}

func TestNameAndLookupFallback(t *testing.T) {
	if Name(ID(999)) != "UNKNOWN" {
		t.Errorf("expected UNKNOWN name for an unregistered id")
	}
	// Lookup falls back to CRC32 for unrecognized ids rather than panicking.
	fn := Lookup(ID(999))
	if fn == nil {
		t.Fatalf("Lookup should never return nil")
	}
}

func TestHsiehKnownLengths(t *testing.T) {
	// Exercise every remainder branch (0,1,2,3 mod 4 bytes).
	for n := 0; n < 8; n++ {
		key := make([]byte, n)
		for i := range key {
			key[i] = byte(i + 1)
		}
		if got := hashHsieh(key); n == 0 && got != 0 {
			t.Errorf("hashHsieh(empty) = %d, want 0", got)
		}
	}
}
