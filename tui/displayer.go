package tui

import (
	"fmt"
	"io"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/go-authgate/msal-bearer/bearer"
)

// Displayer abstracts all output of the CLI: the token provider's progress
// events plus the CLI's own steps.
type Displayer interface {
	bearer.Reporter

	Banner()
	Done(username, preview string, expiresIn time.Duration)
	CallingAPI(url string)
	APICallOK(status int)
	APICallFailed(err error)
	Fatal(err error)
}

// PlainDisplayer writes plain text output to w.
// Used when stderr is not a TTY (pipes, CI, SSH without pty).
type PlainDisplayer struct {
	w io.Writer
}

// NewPlainDisplayer creates a PlainDisplayer that writes to w.
func NewPlainDisplayer(w io.Writer) *PlainDisplayer {
	return &PlainDisplayer{w: w}
}

func (p *PlainDisplayer) Banner() {
	fmt.Fprintln(p.w, "=== MSAL Bearer Token ===")
	fmt.Fprintln(p.w)
}

func (p *PlainDisplayer) CacheLoaded(location string) {
	fmt.Fprintf(p.w, "Loaded token cache from %s\n", location)
}

func (p *PlainDisplayer) CacheNotFound(location string) {
	fmt.Fprintf(p.w, "No token cache at %s, starting fresh...\n", location)
}

func (p *PlainDisplayer) CacheLoadFailed(location string, err error) {
	fmt.Fprintf(p.w, "Warning: ignoring unreadable token cache at %s: %v\n", location, err)
}

func (p *PlainDisplayer) AccountFound(username string) {
	fmt.Fprintf(p.w, "Found cached account %s, acquiring token silently...\n", username)
}

func (p *PlainDisplayer) NoAccount() {
	fmt.Fprintln(p.w, "No cached account found.")
}

func (p *PlainDisplayer) SilentOK() {
	fmt.Fprintln(p.w, "Using cached token.")
}

func (p *PlainDisplayer) SilentFailed(err error) {
	fmt.Fprintf(p.w, "Silent acquisition failed: %v\n", err)
}

func (p *PlainDisplayer) InteractiveRequired(mode string) {
	fmt.Fprintf(p.w, "Interactive login required (%s)...\n", mode)
}

func (p *PlainDisplayer) BrowserOpened(url string) {
	fmt.Fprintln(p.w, "----------------------------------------")
	fmt.Fprintf(p.w, "Opening the login page in your browser. If it does not open, visit:\n%s\n", url)
	fmt.Fprintln(p.w, "----------------------------------------")
	fmt.Fprintln(p.w)
}

func (p *PlainDisplayer) DeviceCodeReady(userCode, verifyURL, message string, expiry time.Time) {
	fmt.Fprintln(p.w, "----------------------------------------")
	if message != "" {
		fmt.Fprintln(p.w, message)
	} else {
		fmt.Fprintf(p.w, "Visit: %s\n", verifyURL)
		fmt.Fprintf(p.w, "And enter code: %s\n", userCode)
	}
	fmt.Fprintf(p.w, "Code expires at %s\n", expiry.Local().Format(time.Kitchen))
	fmt.Fprintln(p.w, "----------------------------------------")
	fmt.Fprintln(p.w)
}

func (p *PlainDisplayer) InteractiveOK(username string) {
	if username == "" {
		fmt.Fprintln(p.w, "\nLogin successful!")
		return
	}
	fmt.Fprintf(p.w, "\nLogin successful! Signed in as %s\n", username)
}

func (p *PlainDisplayer) TokenSaved(path string) {
	fmt.Fprintf(p.w, "Token cache saved to %s\n", path)
}

func (p *PlainDisplayer) TokenSaveFailed(err error) {
	fmt.Fprintf(p.w, "Warning: Failed to save token cache: %v\n", err)
}

func (p *PlainDisplayer) CallingAPI(url string) {
	fmt.Fprintf(p.w, "\nCalling %s...\n", url)
}

func (p *PlainDisplayer) APICallOK(status int) {
	fmt.Fprintf(p.w, "API call successful (%d)\n", status)
}

func (p *PlainDisplayer) APICallFailed(err error) {
	fmt.Fprintf(p.w, "API call failed: %v\n", err)
}

func (p *PlainDisplayer) Done(username, preview string, expiresIn time.Duration) {
	fmt.Fprintln(p.w, "\n========================================")
	fmt.Fprintln(p.w, "Current Token Info:")
	if username != "" {
		fmt.Fprintf(p.w, "User: %s\n", username)
	}
	fmt.Fprintf(p.w, "Access Token: %s...\n", preview)
	if expiresIn > 0 {
		fmt.Fprintf(p.w, "Expires In: %s\n", expiresIn.Round(time.Second))
	}
	fmt.Fprintln(p.w, "========================================")
}

func (p *PlainDisplayer) Fatal(err error) {
	fmt.Fprintf(p.w, "Error: %v\n", err)
}

// NoopDisplayer is a no-op implementation used in tests.
type NoopDisplayer struct {
	bearer.NopReporter
}

func (NoopDisplayer) Banner()                           {}
func (NoopDisplayer) Done(_, _ string, _ time.Duration) {}
func (NoopDisplayer) CallingAPI(_ string)               {}
func (NoopDisplayer) APICallOK(_ int)                   {}
func (NoopDisplayer) APICallFailed(_ error)             {}
func (NoopDisplayer) Fatal(_ error)                     {}

// ProgramDisplayer sends BubbleTea messages to a running tea.Program.
type ProgramDisplayer struct {
	p *tea.Program
}

// NewProgramDisplayer creates a ProgramDisplayer that sends messages to p.
func NewProgramDisplayer(p *tea.Program) *ProgramDisplayer {
	return &ProgramDisplayer{p: p}
}

func (t *ProgramDisplayer) Banner() {
	t.p.Send(MsgBanner{})
}

func (t *ProgramDisplayer) CacheLoaded(location string) {
	t.p.Send(MsgCacheLoaded{Location: location})
}

func (t *ProgramDisplayer) CacheNotFound(location string) {
	t.p.Send(MsgCacheNotFound{Location: location})
}

func (t *ProgramDisplayer) CacheLoadFailed(location string, err error) {
	t.p.Send(MsgCacheLoadFailed{Location: location, Err: err})
}

func (t *ProgramDisplayer) AccountFound(username string) {
	t.p.Send(MsgAccountFound{Username: username})
}

func (t *ProgramDisplayer) NoAccount() {
	t.p.Send(MsgNoAccount{})
}

func (t *ProgramDisplayer) SilentOK() {
	t.p.Send(MsgSilentOK{})
}

func (t *ProgramDisplayer) SilentFailed(err error) {
	t.p.Send(MsgSilentFailed{Err: err})
}

func (t *ProgramDisplayer) InteractiveRequired(mode string) {
	t.p.Send(MsgInteractiveRequired{Mode: mode})
}

func (t *ProgramDisplayer) BrowserOpened(url string) {
	t.p.Send(MsgBrowserOpened{URL: url})
}

func (t *ProgramDisplayer) DeviceCodeReady(userCode, verifyURL, message string, expiry time.Time) {
	t.p.Send(MsgDeviceCodeReady{
		UserCode:  userCode,
		VerifyURL: verifyURL,
		Message:   message,
		Expiry:    expiry,
	})
}

func (t *ProgramDisplayer) InteractiveOK(username string) {
	t.p.Send(MsgInteractiveOK{Username: username})
}

func (t *ProgramDisplayer) TokenSaved(path string) {
	t.p.Send(MsgTokenSaved{Path: path})
}

func (t *ProgramDisplayer) TokenSaveFailed(err error) {
	t.p.Send(MsgTokenSaveFailed{Err: err})
}

func (t *ProgramDisplayer) CallingAPI(url string) {
	t.p.Send(MsgCallingAPI{URL: url})
}

func (t *ProgramDisplayer) APICallOK(status int) {
	t.p.Send(MsgAPICallOK{Status: status})
}

func (t *ProgramDisplayer) APICallFailed(err error) {
	t.p.Send(MsgAPICallFailed{Err: err})
}

func (t *ProgramDisplayer) Done(username, preview string, expiresIn time.Duration) {
	t.p.Send(MsgDone{Username: username, Preview: preview, ExpiresIn: expiresIn})
}

func (t *ProgramDisplayer) Fatal(err error) {
	t.p.Send(MsgFatal{Err: err})
}

var (
	_ Displayer = (*PlainDisplayer)(nil)
	_ Displayer = NoopDisplayer{}
	_ Displayer = (*ProgramDisplayer)(nil)
)
