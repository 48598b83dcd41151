package charges

import "testing"

func TestForChannelInternal(t *testing.T) {
	b := ForChannel("INTERNAL")
	if b.VAT != 5 || b.Fee != 5 || b.StampDuty != 40 {
		t.Fatalf("unexpected internal breakdown: %+v", b)
	}
	if b.Total() != 50 {
		t.Fatalf("expected internal total 50, got %d", b.Total())
	}
}

func TestForChannelExternal(t *testing.T) {
	for _, channel := range []string{"EXTERNAL", "INTERNATIONAL"} {
		b := ForChannel(channel)
		if b.VAT != 10 || b.Fee != 10 || b.StampDuty != 50 {
			t.Fatalf("unexpected %s breakdown: %+v", channel, b)
		}
		if b.Total() != 70 {
			t.Fatalf("expected %s total 70, got %d", channel, b.Total())
		}
	}
}
