package protocol

import (
	"bytes"
	"testing"
)

func TestDecode_Unrecognized(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `not json at all`},
		{"empty", ``},
		{"json null", `null`},
		{"array", `[1,2,3]`},
		{"string", `"STATE"`},
		{"missing type", `{"payload":{"threat":true}}`},
		{"numeric type", `{"type":7,"payload":{"threat":true}}`},
		{"wrong type", `{"type":"HELLO","payload":{"threat":true}}`},
		{"lowercase type", `{"type":"state","payload":{"threat":true}}`},
		{"command echo", `{"type":"COMMAND","payload":{"action":"LOCK"}}`},
		{"missing payload", `{"type":"STATE"}`},
		{"null payload", `{"type":"STATE","payload":null}`},
		{"payload not object", `{"type":"STATE","payload":"threat"}`},
		{"missing threat", `{"type":"STATE","payload":{"image":null}}`},
		{"threat not bool", `{"type":"STATE","payload":{"threat":"yes"}}`},
		{"truncated", `{"type":"STATE","payload":{"threat":true`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Decode([]byte(tt.raw))
			if ev.Kind != KindUnrecognized {
				t.Errorf("Decode(%q).Kind = %v, want unrecognized", tt.raw, ev.Kind)
			}
		})
	}
}

func TestDecode_StateUpdate(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantThreat bool
		wantStatus ImageStatus
		wantData   []byte
	}{
		{
			name:       "three byte image",
			raw:        `{"type":"STATE","payload":{"threat":false,"image":"AQID"}}`,
			wantStatus: ImagePresent,
			wantData:   []byte{1, 2, 3},
		},
		{
			name:       "threat without image field",
			raw:        `{"type":"STATE","payload":{"threat":true}}`,
			wantThreat: true,
			wantStatus: ImageAbsent,
		},
		{
			name:       "null image",
			raw:        `{"type":"STATE","payload":{"threat":false,"image":null}}`,
			wantStatus: ImageAbsent,
		},
		{
			name:       "unpadded base64",
			raw:        `{"type":"STATE","payload":{"threat":true,"image":"AQIDBA"}}`,
			wantThreat: true,
			wantStatus: ImagePresent,
			wantData:   []byte{1, 2, 3, 4},
		},
		{
			name:       "line-wrapped base64",
			raw:        `{"type":"STATE","payload":{"threat":false,"image":"AQID\nBAUG\n"}}`,
			wantStatus: ImagePresent,
			wantData:   []byte{1, 2, 3, 4, 5, 6},
		},
		{
			name:       "bad base64",
			raw:        `{"type":"STATE","payload":{"threat":false,"image":"%%%not-base64%%%"}}`,
			wantStatus: ImageInvalid,
		},
		{
			name:       "empty image string",
			raw:        `{"type":"STATE","payload":{"threat":false,"image":""}}`,
			wantStatus: ImageInvalid,
		},
		{
			name:       "image not a string",
			raw:        `{"type":"STATE","payload":{"threat":true,"image":42}}`,
			wantThreat: true,
			wantStatus: ImageInvalid,
		},
		{
			name:       "extra fields tolerated",
			raw:        `{"type":"STATE","seq":9,"payload":{"threat":false,"locked":true,"image":"AQID"}}`,
			wantStatus: ImagePresent,
			wantData:   []byte{1, 2, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Decode([]byte(tt.raw))
			if ev.Kind != KindStateUpdate {
				t.Fatalf("Kind = %v, want state", ev.Kind)
			}
			if ev.Threat != tt.wantThreat {
				t.Errorf("Threat = %v, want %v", ev.Threat, tt.wantThreat)
			}
			if ev.Image.Status != tt.wantStatus {
				t.Errorf("Image.Status = %v, want %v", ev.Image.Status, tt.wantStatus)
			}
			if !bytes.Equal(ev.Image.Data, tt.wantData) {
				t.Errorf("Image.Data = %v, want %v", ev.Image.Data, tt.wantData)
			}
		})
	}
}

func TestEvent_String(t *testing.T) {
	ev := Decode([]byte(`{"type":"STATE","payload":{"threat":true}}`))
	if got := ev.String(); got != "state(threat=true image=absent)" {
		t.Errorf("String() = %q", got)
	}
	if got := Decode(nil).String(); got != "unrecognized" {
		t.Errorf("String() = %q", got)
	}
}
