package sanitize

import "testing"

func TestTextStripsAllMarkup(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"plain text", "plain text"},
		{"<script>alert(1)</script>hello", "hello"},
		{"  <b>bold</b> name ", "bold name"},
		{"<img src=x onerror=alert(1)>", ""},
	}

	for _, tc := range cases {
		if got := Text(tc.in); got != tc.want {
			t.Errorf("Text(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestContentKeepsSafeMarkup(t *testing.T) {
	got := Content(`<p>hello <strong>world</strong></p><script>alert(1)</script>`)
	if got != "<p>hello <strong>world</strong></p>" {
		t.Fatalf("unexpected sanitized content: %q", got)
	}

	got = Content(`<a href="javascript:alert(1)">x</a>`)
	if got == `<a href="javascript:alert(1)">x</a>` {
		t.Fatalf("expected javascript href to be stripped, got %q", got)
	}
}
