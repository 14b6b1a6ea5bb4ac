package bearer

import "time"

// Reporter receives progress events from a Provider and its cache.
// Implementations must not block.
type Reporter interface {
	CacheLoaded(location string)
	CacheNotFound(location string)
	CacheLoadFailed(location string, err error)
	AccountFound(username string)
	NoAccount()
	SilentOK()
	SilentFailed(err error)
	InteractiveRequired(mode string)
	BrowserOpened(url string)
	DeviceCodeReady(userCode, verifyURL, message string, expiry time.Time)
	InteractiveOK(username string)
	TokenSaved(location string)
	TokenSaveFailed(err error)
}

// NopReporter discards all events.
type NopReporter struct{}

func (NopReporter) CacheLoaded(string)                          {}
func (NopReporter) CacheNotFound(string)                        {}
func (NopReporter) CacheLoadFailed(string, error)               {}
func (NopReporter) AccountFound(string)                         {}
func (NopReporter) NoAccount()                                  {}
func (NopReporter) SilentOK()                                   {}
func (NopReporter) SilentFailed(error)                          {}
func (NopReporter) InteractiveRequired(string)                  {}
func (NopReporter) BrowserOpened(string)                        {}
func (NopReporter) DeviceCodeReady(_, _, _ string, _ time.Time) {}
func (NopReporter) InteractiveOK(string)                        {}
func (NopReporter) TokenSaved(string)                           {}
func (NopReporter) TokenSaveFailed(error)                       {}

var _ Reporter = NopReporter{}
