package urlutil_test

import (
	"testing"

	"github.com/sabouaram/embednet/internal/urlutil"
)

func TestParseDefaultsPort(t *testing.T) {
	u := urlutil.Parse("http://example.com/x")
	if u.Host != "example.com" || u.Port != 80 || u.Path != "/x" {
		t.Fatalf("unexpected parse: %+v", u)
	}
}

func TestParseUserinfoAndPort(t *testing.T) {
	u := urlutil.Parse("mqtt://u:p@broker:1884")
	if u.User != "u" || u.Pass != "p" || u.Host != "broker" || u.Port != 1884 {
		t.Fatalf("unexpected parse: %+v", u)
	}
}

func TestIsSSLSchemes(t *testing.T) {
	for _, s := range []string{"https://h", "wss://h", "mqtts://h", "tcps://h"} {
		if !urlutil.IsSSL(s) {
			t.Fatalf("expected %s to be SSL", s)
		}
	}
	if urlutil.IsSSL("http://h") {
		t.Fatalf("http should not be SSL")
	}
}

func TestEncodeDecodeQueryRoundTrip(t *testing.T) {
	in := "hello world/slash?amp=&"
	out := urlutil.DecodeQuery(urlutil.EncodeQuery(in))
	if out != in {
		t.Fatalf("round trip mismatch: %q != %q", out, in)
	}
}

func TestNetworkByteOrderRoundTrip(t *testing.T) {
	if urlutil.Ntohs(urlutil.Htons(0x1234)) != 0x1234 {
		t.Fatalf("htons/ntohs round trip failed")
	}
	if urlutil.Ntohl(urlutil.Htonl(0xdeadbeef)) != 0xdeadbeef {
		t.Fatalf("htonl/ntohl round trip failed")
	}
}

func TestBase64RoundTrip(t *testing.T) {
	in := []byte("the sample nonce")
	out, err := urlutil.Base64Decode(urlutil.Base64Encode(in))
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if string(out) != string(in) {
		t.Fatalf("round trip mismatch")
	}
}
