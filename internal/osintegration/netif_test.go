package osintegration

import (
	"net"
	"testing"
)

func TestGetNetworkInterfaces_AlwaysIncludesLoopback(t *testing.T) {
	info := GetNetworkInterfaces()

	hasLoopback := false
	hasLocalhost := false
	for _, a := range info.Addresses {
		if a == "127.0.0.1" {
			hasLoopback = true
		}
		if a == "localhost" {
			hasLocalhost = true
		}
	}
	if !hasLoopback || !hasLocalhost {
		t.Errorf("expected 127.0.0.1 and localhost always present, got %v", info.Addresses)
	}
}

func TestGetNetworkInterfaces_NoDuplicates(t *testing.T) {
	info := GetNetworkInterfaces()
	seen := map[string]bool{}
	for _, a := range info.Addresses {
		if seen[a] {
			t.Errorf("duplicate address %q in result", a)
		}
		seen[a] = true
	}
}

func TestIsAPIPA(t *testing.T) {
	cases := []struct {
		ip   string
		want bool
	}{
		{"169.254.1.1", true},
		{"192.168.1.1", false},
		{"10.0.0.1", false},
		{"169.253.1.1", false},
	}
	for _, c := range cases {
		ip := net.ParseIP(c.ip)
		if got := isAPIPA(ip); got != c.want {
			t.Errorf("isAPIPA(%s) = %v, want %v", c.ip, got, c.want)
		}
	}
}

func TestDedupSorted(t *testing.T) {
	got := dedupSorted([]string{"b", "a", "b", "c", "a"})
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("dedupSorted = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("dedupSorted[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
