package commsutil

import "testing"

func TestBuildHostSubject(t *testing.T) {
	if got := BuildHostSubject("runtime.ipc", 7); got != "runtime.ipc.host.7" {
		t.Errorf("BuildHostSubject = %q, want runtime.ipc.host.7", got)
	}
}

func TestHostWildcard(t *testing.T) {
	if got := HostWildcard("runtime.ipc"); got != "runtime.ipc.host.*" {
		t.Errorf("HostWildcard = %q, want runtime.ipc.host.*", got)
	}
}

func TestParseHostSubject(t *testing.T) {
	tests := []struct {
		subject string
		want    int
	}{
		{"runtime.ipc.host.7", 7},
		{"runtime.ipc.host.123", 123},
		{"runtime.ipc.host.-1", -1},
		{"runtime.ipc.host.abc", 0},
		{"runtime.ipc.host.7x", 0},
		{"other.host.7", 0},
		{"runtime.ipc.inbox.7", 0},
	}
	for _, tt := range tests {
		if got := ParseHostSubject("runtime.ipc", tt.subject); got != tt.want {
			t.Errorf("ParseHostSubject(%q) = %d, want %d", tt.subject, got, tt.want)
		}
	}
}

func TestParseHostSubject_RoundTrip(t *testing.T) {
	for _, id := range []int{1, 12, 4096} {
		if got := ParseHostSubject(DefaultSubjectPrefix, BuildHostSubject(DefaultSubjectPrefix, id)); got != id {
			t.Errorf("round trip of %d = %d", id, got)
		}
	}
}

func TestBuildInboxSubject(t *testing.T) {
	tests := []struct {
		process string
		want    string
	}{
		{"renderer-1", "runtime.ipc.inbox.renderer-1"},
		{"app.renderer", "runtime.ipc.inbox.app_renderer"},
		{"*", "runtime.ipc.inbox._"},
		{"a>b", "runtime.ipc.inbox.a_b"},
		{"my renderer\t2", "runtime.ipc.inbox.my_renderer_2"},
	}
	for _, tt := range tests {
		if got := BuildInboxSubject("runtime.ipc", tt.process); got != tt.want {
			t.Errorf("BuildInboxSubject(%q) = %q, want %q", tt.process, got, tt.want)
		}
	}
}

func TestBuildJournalSubject(t *testing.T) {
	if got := BuildJournalSubject("runtime.ipc"); got != "runtime.ipc.journal" {
		t.Errorf("BuildJournalSubject = %q", got)
	}
}
