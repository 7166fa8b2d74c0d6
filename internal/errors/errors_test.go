package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "config error",
			code:    "E104",
			wantMsg: "Invalid port",
			wantCat: CategoryConfig,
		},
		{
			name:    "command error",
			code:    "E201",
			wantMsg: "Unknown command",
			wantCat: CategoryCommand,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestLockwatchError_Error(t *testing.T) {
	err := New("E201").WithDetail(`"reboot"`)
	if got, want := err.Error(), `E201: Unknown command: "reboot"`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	wrapped := New("E102").Wrap(fmt.Errorf("unexpected EOF"))
	if got, want := wrapped.Error(), "E102: Configuration file could not be parsed: unexpected EOF"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestLockwatchError_IsAndUnwrap(t *testing.T) {
	base := fmt.Errorf("dial tcp: refused")
	err := fmt.Errorf("lock: %w", New("E301").Wrap(base))

	if !stderrors.Is(err, base) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if !stderrors.Is(err, New("E301")) {
		t.Error("errors.Is should match on code")
	}
	if stderrors.Is(err, New("E201")) {
		t.Error("errors.Is matched a different code")
	}
	if got := CodeOf(err); got != "E301" {
		t.Errorf("CodeOf() = %q, want E301", got)
	}
	if got := CodeOf(base); got != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", got)
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E102") != nil {
		t.Error("FromError(nil) should be nil")
	}

	orig := New("E104")
	if FromError(orig, "E102") != orig {
		t.Error("FromError should return existing LockwatchError unchanged")
	}

	plain := fmt.Errorf("boom")
	le := FromError(plain, "E102")
	if le.Code != "E102" || le.Wrapped != plain {
		t.Errorf("FromError = %+v", le)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	formatted := New("E104").WithDetail("port 70000 is out of range").Format()
	for _, want := range []string{"ERROR E104: Invalid port", "port 70000 is out of range", "Hint: Use a port between 1 and 65535"} {
		if !strings.Contains(formatted, want) {
			t.Errorf("Format() missing %q in:\n%s", want, formatted)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	if got := New("E105").FormatCompact(); got != "E105: Invalid retry mode" {
		t.Errorf("FormatCompact() = %q", got)
	}
	if got := Newf(CategoryCLI, "no %s", "tty").FormatCompact(); got != "no tty" {
		t.Errorf("FormatCompact() = %q", got)
	}
}

func TestMarshalJSON(t *testing.T) {
	data, err := json.Marshal(New("E201").WithDetail("reboot"))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got["code"] != "E201" || got["category"] != "command" || got["detail"] != "reboot" {
		t.Errorf("JSON = %s", data)
	}
}

func TestFprint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	Fprint(&buf, fmt.Errorf("plain failure"))
	if !strings.Contains(buf.String(), "ERROR: plain failure") {
		t.Errorf("Fprint(plain) = %q", buf.String())
	}
}

func TestGetAllCodes(t *testing.T) {
	codes := GetAllCodes()
	if len(codes) == 0 {
		t.Fatal("GetAllCodes() returned nothing")
	}
	for i := 1; i < len(codes); i++ {
		if codes[i-1] > codes[i] {
			t.Fatalf("codes not sorted: %v", codes)
		}
	}
	if _, ok := GetTemplate(codes[0]); !ok {
		t.Errorf("GetTemplate(%q) not found", codes[0])
	}
}

func TestGetTemplate_Categories(t *testing.T) {
	tests := []struct {
		code string
		want Category
	}{
		{"E101", CategoryConfig},
		{"E201", CategoryCommand},
		{"E301", CategoryCLI},
		{"E401", CategoryProtocol},
	}
	for _, tt := range tests {
		tmpl, ok := GetTemplate(tt.code)
		if !ok {
			t.Errorf("GetTemplate(%q) not found", tt.code)
			continue
		}
		if tmpl.Category != tt.want {
			t.Errorf("GetTemplate(%q).Category = %q, want %q", tt.code, tmpl.Category, tt.want)
		}
	}

	if _, ok := GetTemplate("E999"); ok {
		t.Error("GetTemplate(E999) found an unregistered code")
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("alpha beta gamma delta", 11)
	want := []string{"alpha beta", "gamma delta"}
	if len(lines) != len(want) {
		t.Fatalf("wrapText = %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}
