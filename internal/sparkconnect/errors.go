package sparkconnect

// ProtocolError is returned when the server sends something this client
// can not make sense of.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return "spark connect protocol error: " + e.Reason + ": " + e.Err.Error()
	}
	return "spark connect protocol error: " + e.Reason
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}
