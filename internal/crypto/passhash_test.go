package crypto

import (
	"bytes"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestRandBytes_LengthAndUniqueness(t *testing.T) {
	t.Parallel()

	const n = 64
	a, err := RandBytes(n)
	if err != nil {
		t.Fatalf("RandBytes: %v", err)
	}
	if len(a) != n {
		t.Fatalf("len=%d, want=%d", len(a), n)
	}
	b, err := RandBytes(n)
	if err != nil {
		t.Fatalf("RandBytes(2): %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatalf("two subsequent RandBytes(%d) are equal, looks non-random", n)
	}
}

func TestHash_SaltedAndNotPlaintext(t *testing.T) {
	t.Parallel()

	h := NewHasher(bcrypt.MinCost)
	pw := "Str0ng!pass"

	h1, err := h.Hash(pw)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := h.Hash(pw)
	if err != nil {
		t.Fatalf("Hash(2): %v", err)
	}
	if h1 == pw || h2 == pw {
		t.Fatalf("hash equals plaintext")
	}
	if h1 == h2 {
		t.Fatalf("hash not salted: two hashes of the same input are equal")
	}
}

func TestVerify(t *testing.T) {
	t.Parallel()

	h := NewHasher(bcrypt.MinCost)
	pw := "Correct-H0rse"

	hash, err := h.Hash(pw)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !h.Verify(pw, hash) {
		t.Fatalf("Verify: expected true for correct password")
	}
	if h.Verify("Wrong-H0rse", hash) {
		t.Fatalf("Verify: expected false for wrong password")
	}
	if h.Verify("", hash) {
		t.Fatalf("Verify: expected false for empty password")
	}
	if h.Verify(pw, "not-a-bcrypt-hash") {
		t.Fatalf("Verify: expected false for corrupt hash")
	}
}

func TestNewHasher_CostBounds(t *testing.T) {
	t.Parallel()

	if got := NewHasher(0).Cost(); got != DefaultCost {
		t.Fatalf("cost=%d, want default %d", got, DefaultCost)
	}
	if got := NewHasher(bcrypt.MaxCost + 1).Cost(); got != DefaultCost {
		t.Fatalf("cost=%d, want default %d", got, DefaultCost)
	}
	if got := NewHasher(bcrypt.MinCost).Cost(); got != bcrypt.MinCost {
		t.Fatalf("cost=%d, want %d", got, bcrypt.MinCost)
	}
}

func TestBurnVerify_DoesNotPanic(t *testing.T) {
	t.Parallel()

	h := NewHasher(bcrypt.MinCost)
	h.BurnVerify("whatever")
	h.BurnVerify("again")
}

func TestValidationErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		pw   string
		want []string
	}{
		{"Strong1!", nil},
		{"weak", []string{MsgTooShort, MsgNoUppercase, MsgNoDigit, MsgNoSymbol}},
		{"Weak1!", []string{MsgTooShort}},
		{"alllowercase1!", []string{MsgNoUppercase}},
		{"ALLUPPERCASE1!", []string{MsgNoLowercase}},
		{"NoDigitsHere!", []string{MsgNoDigit}},
		{"NoSymbols123", []string{MsgNoSymbol}},
		{strings.Repeat("Aa1!", 19), []string{MsgTooLong}},
		// 7 characters, 8 bytes
		{"ÄbcD1!x", []string{MsgTooShort}},
		{"ÄbcD1!xy", nil},
		{strings.Repeat("é", 35) + "aA1!", []string{MsgTooLong}},
		{"", []string{MsgTooShort, MsgNoUppercase, MsgNoLowercase, MsgNoDigit, MsgNoSymbol}},
	}
	for _, c := range cases {
		got := ValidationErrors(c.pw)
		if len(got) != len(c.want) {
			t.Fatalf("%q: got %v, want %v", c.pw, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("%q: got %v, want %v", c.pw, got, c.want)
			}
		}
		if IsAcceptableFormat(c.pw) != (len(c.want) == 0) {
			t.Fatalf("%q: IsAcceptableFormat disagrees with ValidationErrors", c.pw)
		}
	}
}
