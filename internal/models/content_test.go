package models

import (
	"bytes"
	"errors"
	"testing"
)

func TestParseContentText(t *testing.T) {
	c, err := ParseContent("hello data:image/png")
	if err != nil {
		t.Fatalf("ParseContent: %v", err)
	}
	if c.Kind != KindText || c.Text != "hello data:image/png" {
		t.Errorf("got %+v, want text", c)
	}
}

func TestParseContentImage(t *testing.T) {
	raw := []byte{0x89, 'P', 'N', 'G', 0x00, 0xff}
	wire := Image(raw, "image/png").String()

	c, err := ParseContent(wire)
	if err != nil {
		t.Fatalf("ParseContent(%q): %v", wire, err)
	}
	if c.Kind != KindImage || c.MimeType != "image/png" || !bytes.Equal(c.Data, raw) {
		t.Errorf("got %+v", c)
	}
	if c.String() != wire {
		t.Errorf("String() = %q, want %q", c.String(), wire)
	}
}

func TestParseContentRejectsMalformedImages(t *testing.T) {
	for _, in := range []string{
		"data:image/png;base64",
		"data:image/png,AAAA",
		"data:image/;base64,AAAA",
		"data:image/png;base64,***",
		"data:image/png;base64,",
	} {
		if _, err := ParseContent(in); !errors.Is(err, ErrBadImage) {
			t.Errorf("ParseContent(%q) err = %v, want ErrBadImage", in, err)
		}
	}
}

func TestPairKeyIsOrderIndependent(t *testing.T) {
	lo1, hi1 := PairKey("bbb222", "aaa111")
	lo2, hi2 := PairKey("aaa111", "bbb222")
	if lo1 != lo2 || hi1 != hi2 || lo1 != "aaa111" {
		t.Errorf("PairKey mismatch: (%s,%s) vs (%s,%s)", lo1, hi1, lo2, hi2)
	}
}

func TestChatPeer(t *testing.T) {
	c := Chat{UserAID: "a", UserBID: "b"}
	if c.Peer("a") != "b" || c.Peer("b") != "a" {
		t.Errorf("Peer returned wrong participant")
	}
	if !c.HasParticipant("a") || c.HasParticipant("c") || c.HasParticipant("") {
		t.Errorf("HasParticipant wrong")
	}
}
