package tui

import (
	"time"
)

// MsgBanner signals that the banner/title should be displayed.
type MsgBanner struct{}

// MsgCacheLoaded signals that the credential cache was read.
type MsgCacheLoaded struct{ Location string }

// MsgCacheNotFound signals that no credential cache exists yet.
type MsgCacheNotFound struct{ Location string }

// MsgCacheLoadFailed signals that the cache was unreadable and is treated as empty.
type MsgCacheLoadFailed struct {
	Location string
	Err      error
}

// MsgAccountFound signals that a cached account will be tried silently.
type MsgAccountFound struct{ Username string }

// MsgNoAccount signals that the cache holds no usable account.
type MsgNoAccount struct{}

// MsgSilentOK signals that a cached or refreshed token was obtained.
type MsgSilentOK struct{}

// MsgSilentFailed signals that silent acquisition failed.
type MsgSilentFailed struct{ Err error }

// MsgInteractiveRequired signals that an interactive login is starting.
type MsgInteractiveRequired struct{ Mode string }

// MsgBrowserOpened signals that the login page is being opened.
type MsgBrowserOpened struct{ URL string }

// MsgDeviceCodeReady signals that the device code is ready for user action.
type MsgDeviceCodeReady struct {
	UserCode  string
	VerifyURL string
	Message   string
	Expiry    time.Time
}

// MsgInteractiveOK signals that the user signed in.
type MsgInteractiveOK struct{ Username string }

// MsgTokenSaved signals that the cache was written.
type MsgTokenSaved struct{ Path string }

// MsgTokenSaveFailed signals that writing the cache failed.
type MsgTokenSaveFailed struct{ Err error }

// MsgCallingAPI signals that the API request is in progress.
type MsgCallingAPI struct{ URL string }

// MsgAPICallOK signals that an API call succeeded.
type MsgAPICallOK struct{ Status int }

// MsgAPICallFailed signals that an API call failed.
type MsgAPICallFailed struct{ Err error }

// MsgDone signals that a token was acquired.
type MsgDone struct {
	Username  string
	Preview   string
	ExpiresIn time.Duration
}

// MsgFatal signals a fatal error that should terminate the flow.
type MsgFatal struct{ Err error }
