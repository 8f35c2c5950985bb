package chat

// ValidationError reports a request that cannot be served as given.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Msg
}

// RemoteModelError wraps a failure of the remote model call. Nothing is
// persisted when it occurs.
type RemoteModelError struct {
	Err error
}

func (e *RemoteModelError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return "remote model call failed"
	}
	return "remote model call failed: " + e.Err.Error()
}

func (e *RemoteModelError) Unwrap() error { return e.Err }

// StorageError wraps a history log read or write failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	if e == nil {
		return ""
	}
	msg := "history storage failed"
	if e.Op != "" {
		msg += " during " + e.Op
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StorageError) Unwrap() error { return e.Err }
