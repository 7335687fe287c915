package types

import (
	"encoding/json"
	"testing"
)

func TestDecodeEnvelope(t *testing.T) {
	raw := []byte(`{"type":"order:status","data":{"status":"preparing"},"requestId":"r-1","timestamp":1700000000000}`)
	env, err := DecodeEnvelope(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if env.Type != "order:status" {
		t.Errorf("expected type order:status, got %s", env.Type)
	}
	if env.Data["status"] != "preparing" {
		t.Errorf("expected data.status preparing, got %v", env.Data["status"])
	}
	if env.RequestID != "r-1" {
		t.Errorf("expected requestId r-1, got %s", env.RequestID)
	}
	if env.Timestamp != 1700000000000 {
		t.Errorf("expected timestamp preserved, got %d", env.Timestamp)
	}
}

func TestDecodeEnvelopeRejectsEmptyType(t *testing.T) {
	if _, err := DecodeEnvelope([]byte(`{"data":{"x":1},"timestamp":1}`)); err == nil {
		t.Fatal("expected error for missing type")
	}
	if _, err := DecodeEnvelope([]byte(`{"type":"","timestamp":1}`)); err == nil {
		t.Fatal("expected error for empty type")
	}
}

func TestDecodeEnvelopeRejectsMalformedJSON(t *testing.T) {
	if _, err := DecodeEnvelope([]byte(`{"type":`)); err == nil {
		t.Fatal("expected error for malformed frame")
	}
}

func TestEncodeStampsTimestamp(t *testing.T) {
	data, err := Envelope{Type: "ping"}.Encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	var out Envelope
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if out.Timestamp == 0 {
		t.Error("expected timestamp to be stamped")
	}
}

func TestClientIDNotSerialized(t *testing.T) {
	data, err := Envelope{Type: "x", ClientID: "c-1"}.Encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if _, ok := m["ClientID"]; ok {
		t.Error("ClientID must not reach the wire")
	}
}

func TestErrorEnvelope(t *testing.T) {
	env := ErrorEnvelope(CodeUnknownEvent, "no handler", "req-9")
	if env.Type != TypeError {
		t.Errorf("expected type error, got %s", env.Type)
	}
	if env.Data["code"] != CodeUnknownEvent {
		t.Errorf("expected code unknown_event, got %v", env.Data["code"])
	}
	if env.RequestID != "req-9" {
		t.Errorf("expected requestId carried through, got %s", env.RequestID)
	}
}

func TestChannelNames(t *testing.T) {
	if UserChannel("u-7") != "user:u-7" {
		t.Errorf("unexpected user channel %s", UserChannel("u-7"))
	}
	if OrderChannel("42") != "order:42" {
		t.Errorf("unexpected order channel %s", OrderChannel("42"))
	}
}

func TestIdentityHasRole(t *testing.T) {
	id := Identity{UserID: "u-1", Roles: []string{"courier", "admin"}}
	if !id.HasRole("courier") {
		t.Error("expected courier role")
	}
	if id.HasRole("customer") {
		t.Error("did not expect customer role")
	}
}
