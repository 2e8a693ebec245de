package cotacao

import "fmt"

// SessionError means the browser could not be started or spoken to. It is
// the only extraction error that aborts a whole run.
type SessionError struct {
	Err error
}

func (err SessionError) Error() string {
	return fmt.Sprintf("browser session failed: %v", err.Err)
}

func (err SessionError) Unwrap() error { return err.Err }

// SelectionError means no locator strategy could find the requested
// dropdown option. Caught per strategy; triggers fallback to the next one.
type SelectionError struct {
	Control string
	Label   string
}

func (err SelectionError) Error() string {
	return fmt.Sprintf("could not select %#v in control %v", err.Label, err.Control)
}

// SubmitError means none of the known submit-control locators matched a
// visible element.
type SubmitError struct {
	Candidates int
}

func (err SubmitError) Error() string {
	return fmt.Sprintf("no visible submit control found (%d candidates tried)", err.Candidates)
}

// UnsupportedPairError is reported by the public-data fallback when the
// pair is outside its fixed currency table.
type UnsupportedPairError struct {
	Pair CurrencyPair
}

func (err UnsupportedPairError) Error() string {
	return fmt.Sprintf("pair %v is not supported by the PTAX service", err.Pair)
}

// SaveError means the report could not be written even after the
// alternate-filename and temporary-directory retries. Fatal to the caller.
type SaveError struct {
	Path string
	Err  error
}

func (err SaveError) Error() string {
	return fmt.Sprintf("could not save report to %v (or any fallback path): %v", err.Path, err.Err)
}

func (err SaveError) Unwrap() error { return err.Err }

// RetryAndRecordError signals that a recorded fixture is missing while the
// HTTP session is replaying instead of hitting the network.
type RetryAndRecordError struct {
	Filename string
}

func (err RetryAndRecordError) Error() string {
	return fmt.Sprintf("record file '%v' is missing while replaying! Retry with 'record' mode!", err.Filename)
}
