package pathsan

import "testing"

func TestSafeProjectName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Frank/my project!", "Frank/my_project_"},
		{"  ", DefaultSegment},
		{"a//b", "a/b"},
		{"User\\Project", "User/Project"},
		{"../../etc/passwd", "__/__/etc/passwd"},
	}
	for _, c := range cases {
		got := SafeProjectName(c.in)
		if got != c.want {
			t.Errorf("SafeProjectName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSafeFilename(t *testing.T) {
	cases := []struct{ in, want string }{
		{"report (final).pdf", "report__final_.pdf"},
		{"../../evil.sh", "evil.sh"},
		{"", "file.bin"},
		{"C:\\Users\\frank\\notes.txt", "notes.txt"},
	}
	for _, c := range cases {
		got := SafeFilename(c.in)
		if got != c.want {
			t.Errorf("SafeFilename(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
