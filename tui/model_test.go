package tui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func update(t *testing.T, m Model, msgs ...any) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		var ok bool
		m, ok = next.(Model)
		if !ok {
			t.Fatalf("Update returned %T, want Model", next)
		}
	}
	return m
}

func TestModel_SilentFlow(t *testing.T) {
	m := update(t, NewModel(),
		MsgCacheLoaded{Location: "token_cache.bin"},
		MsgAccountFound{Username: "alice@example.com"},
	)
	if m.state != stateSilent {
		t.Fatalf("state = %v, want stateSilent", m.state)
	}
	if !strings.Contains(m.viewMain(), "Acquiring token silently") {
		t.Errorf("main view does not show silent step:\n%s", m.viewMain())
	}

	m = update(t, m,
		MsgSilentOK{},
		MsgDone{Username: "alice@example.com", Preview: "eyJ0eXAi", ExpiresIn: 90 * time.Second},
	)
	if m.state != stateSuccess {
		t.Fatalf("state = %v, want stateSuccess", m.state)
	}
	view := m.viewSuccess()
	for _, want := range []string{"alice@example.com", "eyJ0eXAi...", "1m 30s", "Using cached token"} {
		if !strings.Contains(view, want) {
			t.Errorf("success view missing %q:\n%s", want, view)
		}
	}
}

func TestModel_BrowserLogin(t *testing.T) {
	m := update(t, NewModel(),
		MsgCacheNotFound{Location: "token_cache.bin"},
		MsgNoAccount{},
		MsgInteractiveRequired{Mode: "browser"},
		MsgBrowserOpened{URL: "https://login.example.com/authorize"},
	)
	if m.state != stateBrowser {
		t.Fatalf("state = %v, want stateBrowser", m.state)
	}
	if !strings.Contains(m.viewMain(), "https://login.example.com/authorize") {
		t.Errorf("main view does not show login URL:\n%s", m.viewMain())
	}
}

func TestModel_DeviceCode(t *testing.T) {
	m := update(t, NewModel(), MsgDeviceCodeReady{
		UserCode:  "ABCD-1234",
		VerifyURL: "https://microsoft.com/devicelogin",
		Expiry:    time.Now().Add(5 * time.Minute),
	})
	if m.state != stateDeviceFlow {
		t.Fatalf("state = %v, want stateDeviceFlow", m.state)
	}
	view := m.viewMain()
	for _, want := range []string{"ABCD-1234", "https://microsoft.com/devicelogin", "remaining"} {
		if !strings.Contains(view, want) {
			t.Errorf("device view missing %q:\n%s", want, view)
		}
	}
}

func TestModel_Fatal(t *testing.T) {
	m := update(t, NewModel(),
		MsgTokenSaveFailed{Err: errors.New("disk full")},
		MsgFatal{Err: errors.New("login cancelled")},
	)
	if m.state != stateError {
		t.Fatalf("state = %v, want stateError", m.state)
	}
	view := m.viewError()
	if !strings.Contains(view, "login cancelled") || !strings.Contains(view, "disk full") {
		t.Errorf("error view incomplete:\n%s", view)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{-time.Second, "0s"},
		{45 * time.Second, "45s"},
		{61 * time.Second, "1m 1s"},
		{59*time.Minute + 59*time.Second, "59m 59s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPlainDisplayer(t *testing.T) {
	var buf bytes.Buffer
	d := NewPlainDisplayer(&buf)

	d.Banner()
	d.CacheNotFound("token_cache.bin")
	d.InteractiveRequired("device")
	d.DeviceCodeReady("ABCD-1234", "https://microsoft.com/devicelogin", "", time.Now())
	d.InteractiveOK("bob@example.com")
	d.TokenSaved("token_cache.bin")
	d.Done("bob@example.com", "eyJ0eXAi", time.Hour)

	out := buf.String()
	for _, want := range []string{
		"=== MSAL Bearer Token ===",
		"No token cache at token_cache.bin",
		"Interactive login required (device)",
		"And enter code: ABCD-1234",
		"Signed in as bob@example.com",
		"Token cache saved to token_cache.bin",
		"Access Token: eyJ0eXAi...",
		"Expires In: 1h0m0s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPlainDisplayer_DeviceMessage(t *testing.T) {
	var buf bytes.Buffer
	d := NewPlainDisplayer(&buf)

	msg := "To sign in, use a web browser to open the page https://microsoft.com/devicelogin"
	d.DeviceCodeReady("ABCD-1234", "https://microsoft.com/devicelogin", msg, time.Now())

	out := buf.String()
	if !strings.Contains(out, msg) {
		t.Errorf("output missing server message:\n%s", out)
	}
	if strings.Contains(out, "And enter code") {
		t.Errorf("output should not repeat the code when a message is given:\n%s", out)
	}
}
