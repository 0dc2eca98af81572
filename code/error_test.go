package code

import "testing"

func TestErrorf(t *testing.T) {
	err := Errorf(InvalidParams, "bad field %q", "name")
	if got, want := err.Error(), `[-32602] bad field "name"`; got != want {
		t.Errorf("Errorf: got %q, want %q", got, want)
	}
}

func TestWithData(t *testing.T) {
	base := Errorf(ResourceNotFound, "no such resource")
	withData := base.WithData(map[string]string{"uri": "file:///missing"})
	if len(withData.Data) == 0 {
		t.Error("WithData did not attach data")
	}
	if withData.Code != base.Code || withData.Message != base.Message {
		t.Error("WithData changed code or message")
	}
	if same := base.WithData(nil); same != base {
		t.Error("WithData(nil) should return the receiver unmodified")
	}
}

func TestDisconnects(t *testing.T) {
	if !Errorf(ProtocolVersionMismatch, "mismatch").Disconnects() {
		t.Error("ProtocolVersionMismatch should disconnect")
	}
	if Errorf(MethodNotFound, "nope").Disconnects() {
		t.Error("MethodNotFound should not disconnect")
	}
	var nilErr *Error
	if nilErr.Disconnects() {
		t.Error("nil error should not disconnect")
	}
}
