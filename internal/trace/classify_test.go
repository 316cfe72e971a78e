package trace

import "testing"

func TestClassifyIP(t *testing.T) {
	t.Parallel()

	cases := []struct {
		ip   string
		want string
	}{
		{"127.0.0.1", "localhost"},
		{"127.5.5.5", "localhost"},
		{"::1", "localhost"},
		{"localhost", "localhost"},
		{"0.0.0.0", "localhost"},
		{"10.0.0.1", "private"},
		{"172.16.0.1", "private"},
		{"192.168.1.50", "private"},
		{"169.254.1.1", "private"},
		{"fd00::1", "private"},
		{"8.8.8.8", "public"},
		{"203.0.113.7", "public"},
		{"2001:db8::1", "public"},
		{"not-an-ip", "public"},
	}
	for _, tc := range cases {
		if got := ClassifyIP(tc.ip); got != tc.want {
			t.Fatalf("ClassifyIP(%q) = %q, want %q", tc.ip, got, tc.want)
		}
	}
}
