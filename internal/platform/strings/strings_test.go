package strings

import "testing"

func TestIfEmpty(t *testing.T) {
	t.Parallel()

	in := []int{1, 2, 3}
	def := []int{9}
	if got := IfEmpty(in, def); len(got) != 3 || got[0] != 1 {
		t.Fatalf("IfEmpty returned wrong slice: %#v", got)
	}

	var empty []string
	if got := IfEmpty(empty, []string{"x"}); len(got) != 1 || got[0] != "x" {
		t.Fatalf("IfEmpty did not return default: %#v", got)
	}
}

func TestMustString(t *testing.T) {
	if got := MustString("ok", "name"); got != "ok" {
		t.Fatalf("want ok got %q", got)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("want panic for blank value")
		}
	}()
	_ = MustString("   ", "name")
}

func TestMustPrefix(t *testing.T) {
	cases := map[string]string{
		"/meta/":   "/meta",
		" meta  ":  "/meta",
		"//meta//": "/meta",
	}
	for in, want := range cases {
		if got := MustPrefix(in); got != want {
			t.Errorf("MustPrefix(%q) = %q, want %q", in, got, want)
		}
	}

	for _, in := range []string{"/", "", "   "} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("MustPrefix(%q) should panic", in)
				}
			}()
			_ = MustPrefix(in)
		}()
	}
}

func TestBlank(t *testing.T) {
	t.Parallel()

	if !Blank("") || !Blank("  \t ") {
		t.Fatal("whitespace should be blank")
	}
	if Blank(" x ") {
		t.Fatal("content should not be blank")
	}
}

func TestSQLNull(t *testing.T) {
	t.Parallel()

	if got := SQLNull("  "); got != nil {
		t.Fatalf("blank should map to nil, got %v", got)
	}
	if got := SQLNull("abc"); got != "abc" {
		t.Fatalf("content should pass through, got %v", got)
	}
}
