package naming

import (
	"math/rand"
	"regexp"
	"strings"
	"testing"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

func TestSanitize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "Front Door", want: "Front_Door"},
		{in: "Back Yard!!", want: "Back_Yard"},
		{in: "   ", want: "Camera"},
		{in: "", want: "Camera"},
		{in: "!!!", want: "Camera"},
		{in: `Garage/Side\Gate`, want: "Garage_Side_Gate"},
		{in: "  Drive \u00a0 way ", want: "Drive_way"},
		{in: "-north", want: "Camera_-north"},
		{in: "__lobby__", want: "lobby"},
		{in: "Café Entrance", want: "Caf_Entrance"},
		{in: "📷 Porch", want: "Porch"},
		{in: "a -- b", want: "a_--_b"},
		{in: "cam-01", want: "cam-01"},
	}
	for _, tc := range cases {
		if got := Sanitize(tc.in); got != tc.want {
			t.Fatalf("Sanitize(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestSanitize_AlwaysLegalAndIdempotent(t *testing.T) {
	alphabet := []rune("aZ09 _-/\\!.#:\t\n 　é漢😀\x00�")
	rng := rand.New(rand.NewSource(7))

	inputs := []string{"", " ", "___", "---", "/\\/", "😀😀", "\xff\xfe"}
	for i := 0; i < 2000; i++ {
		n := rng.Intn(16)
		var b strings.Builder
		for j := 0; j < n; j++ {
			b.WriteRune(alphabet[rng.Intn(len(alphabet))])
		}
		inputs = append(inputs, b.String())
	}

	for _, in := range inputs {
		got := Sanitize(in)
		if !identifierPattern.MatchString(got) {
			t.Fatalf("Sanitize(%q) = %q is not a legal identifier", in, got)
		}
		if !IsIdentifier(got) {
			t.Fatalf("IsIdentifier(%q) expected true", got)
		}
		if again := Sanitize(got); again != got {
			t.Fatalf("Sanitize not idempotent for %q: %q then %q", in, got, again)
		}
	}
}

func TestIsIdentifier(t *testing.T) {
	if IsIdentifier("") || IsIdentifier("_x") || IsIdentifier("a b") {
		t.Fatalf("expected illegal identifiers to be rejected")
	}
	if !IsIdentifier("Front_Door-2") {
		t.Fatalf("expected Front_Door-2 to be legal")
	}
}

func TestRegistry_SuffixesDuplicatesInOrder(t *testing.T) {
	r := NewRegistry("_Sub")
	want := []string{"Door", "Door_2", "Door_3", "Door_4"}
	for i, w := range want {
		if got := r.Claim("Door"); got != w {
			t.Fatalf("claim %d: expected %q, got %q", i, w, got)
		}
	}
}

func TestRegistry_SkipsExplicitlyNumberedNames(t *testing.T) {
	r := NewRegistry("")
	r.Claim("Door")
	r.Claim("Door_2")
	if got := r.Claim("Door"); got != "Door_3" {
		t.Fatalf("expected Door_3, got %q", got)
	}
}

func TestRegistry_ReservesCompanion(t *testing.T) {
	r := NewRegistry("_Sub")
	if got := r.Claim("Door"); got != "Door" {
		t.Fatalf("expected Door, got %q", got)
	}
	if !r.Taken("Door_Sub") {
		t.Fatalf("expected companion Door_Sub to be reserved")
	}
	if got := r.Claim("Door_Sub"); got != "Door_Sub_2" {
		t.Fatalf("expected Door_Sub_2, got %q", got)
	}

	// A name whose companion is already claimed is also taken.
	r = NewRegistry("_Sub")
	r.Claim("Gate_Sub")
	if got := r.Claim("Gate"); got != "Gate_2" {
		t.Fatalf("expected Gate_2, got %q", got)
	}
}
