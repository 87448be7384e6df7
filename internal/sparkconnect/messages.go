package sparkconnect

// Message is implemented by every spark connect message this package knows.
// Only the fields needed by this client are modeled, unknown fields are
// skipped when decoding.
type Message interface {
	MarshalWire() ([]byte, error)
	UnmarshalWire([]byte) error
}

var (
	_ Message = (*ExecutePlanRequest)(nil)
	_ Message = (*ExecutePlanResponse)(nil)
	_ Message = (*AnalyzePlanRequest)(nil)
	_ Message = (*AnalyzePlanResponse)(nil)
	_ Message = (*ReleaseSessionRequest)(nil)
	_ Message = (*ReleaseSessionResponse)(nil)
)

// UserContext identifies the user on whose behalf requests are made.
type UserContext struct {
	UserID   string
	UserName string
}

func (m *UserContext) appendWire(b []byte) []byte {
	b = appendString(b, 1, m.UserID)
	return appendString(b, 2, m.UserName)
}

func (m *UserContext) unmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			m.UserID, err = f.str()
		case 2:
			m.UserName, err = f.str()
		}
		return err
	})
}

// ExecutePlanRequest starts execution of a plan. Results are streamed back
// as ExecutePlanResponse messages.
type ExecutePlanRequest struct {
	SessionID   string
	UserContext UserContext
	Plan        *Relation
	ClientType  string
	OperationID string
}

func (m *ExecutePlanRequest) MarshalWire() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.SessionID)
	b = appendMessage(b, 2, m.UserContext.appendWire(nil))

	if m.Plan != nil {
		root, err := m.Plan.marshalWire()
		if err != nil {
			return nil, err
		}
		// Plan { oneof op_type { Relation root = 1; } }
		b = appendMessage(b, 3, appendMessage(nil, 1, root))
	}

	b = appendString(b, 4, m.ClientType)
	b = appendString(b, 6, m.OperationID)
	return b, nil
}

func (m *ExecutePlanRequest) UnmarshalWire(b []byte) error {
	*m = ExecutePlanRequest{}

	return walk(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			m.SessionID, err = f.str()
		case 2:
			var v []byte
			if v, err = f.msg(); err == nil {
				err = m.UserContext.unmarshalWire(v)
			}
		case 3:
			var v []byte
			if v, err = f.msg(); err == nil {
				err = walk(v, func(pf field) error {
					if pf.num != 1 {
						return nil
					}
					root, err := pf.msg()
					if err != nil {
						return err
					}
					m.Plan = new(Relation)
					return m.Plan.unmarshalWire(root)
				})
			}
		case 4:
			m.ClientType, err = f.str()
		case 6:
			m.OperationID, err = f.str()
		}
		return err
	})
}

// ArrowBatch holds a serialized arrow ipc stream with RowCount rows.
type ArrowBatch struct {
	RowCount    int64
	Data        []byte
	StartOffset int64
}

// ExecutePlanResponse is one message of the ExecutePlan server stream.
type ExecutePlanResponse struct {
	SessionID           string
	ServerSideSessionID string
	OperationID         string
	ResponseID          string

	// response type, at most one is set
	ArrowBatch     *ArrowBatch
	ResultComplete bool
}

func (m *ExecutePlanResponse) MarshalWire() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.SessionID)

	if m.ArrowBatch != nil {
		var batch []byte
		batch = appendInt64(batch, 1, m.ArrowBatch.RowCount)
		batch = appendBytes(batch, 2, m.ArrowBatch.Data)
		batch = appendInt64(batch, 3, m.ArrowBatch.StartOffset)
		b = appendMessage(b, 2, batch)
	}

	b = appendString(b, 12, m.OperationID)
	b = appendString(b, 13, m.ResponseID)
	if m.ResultComplete {
		b = appendMessage(b, 14, nil)
	}
	b = appendString(b, 15, m.ServerSideSessionID)
	return b, nil
}

func (m *ExecutePlanResponse) UnmarshalWire(b []byte) error {
	*m = ExecutePlanResponse{}

	return walk(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			m.SessionID, err = f.str()
		case 2:
			var v []byte
			if v, err = f.msg(); err == nil {
				m.ArrowBatch, err = unmarshalArrowBatch(v)
			}
		case 12:
			m.OperationID, err = f.str()
		case 13:
			m.ResponseID, err = f.str()
		case 14:
			_, err = f.msg()
			m.ResultComplete = err == nil
		case 15:
			m.ServerSideSessionID, err = f.str()
		}
		return err
	})
}

func unmarshalArrowBatch(b []byte) (*ArrowBatch, error) {
	batch := new(ArrowBatch)
	err := walk(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			batch.RowCount, err = f.int64()
		case 2:
			var v []byte
			if v, err = f.msg(); err == nil {
				// the field buffer is owned by the grpc receive buffer
				batch.Data = append([]byte(nil), v...)
			}
		case 3:
			batch.StartOffset, err = f.int64()
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// AnalyzePlanRequest is only used to ask for the server version.
type AnalyzePlanRequest struct {
	SessionID    string
	UserContext  UserContext
	ClientType   string
	SparkVersion bool
}

func (m *AnalyzePlanRequest) MarshalWire() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.SessionID)
	b = appendMessage(b, 2, m.UserContext.appendWire(nil))
	b = appendString(b, 3, m.ClientType)
	if m.SparkVersion {
		b = appendMessage(b, 10, nil)
	}
	return b, nil
}

func (m *AnalyzePlanRequest) UnmarshalWire(b []byte) error {
	*m = AnalyzePlanRequest{}

	return walk(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			m.SessionID, err = f.str()
		case 2:
			var v []byte
			if v, err = f.msg(); err == nil {
				err = m.UserContext.unmarshalWire(v)
			}
		case 3:
			m.ClientType, err = f.str()
		case 10:
			_, err = f.msg()
			m.SparkVersion = err == nil
		}
		return err
	})
}

// AnalyzePlanResponse carries the server version if it was requested.
type AnalyzePlanResponse struct {
	SessionID           string
	ServerSideSessionID string
	// SparkVersion is nil if the response is not a version response
	SparkVersion *string
}

func (m *AnalyzePlanResponse) MarshalWire() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.SessionID)
	if m.SparkVersion != nil {
		b = appendMessage(b, 8, appendString(nil, 1, *m.SparkVersion))
	}
	b = appendString(b, 15, m.ServerSideSessionID)
	return b, nil
}

func (m *AnalyzePlanResponse) UnmarshalWire(b []byte) error {
	*m = AnalyzePlanResponse{}

	return walk(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			m.SessionID, err = f.str()
		case 8:
			var v []byte
			if v, err = f.msg(); err != nil {
				return err
			}
			version := ""
			err = walk(v, func(vf field) error {
				if vf.num != 1 {
					return nil
				}
				var err error
				version, err = vf.str()
				return err
			})
			m.SparkVersion = &version
		case 15:
			m.ServerSideSessionID, err = f.str()
		}
		return err
	})
}

// ReleaseSessionRequest ends a session on the server.
type ReleaseSessionRequest struct {
	SessionID   string
	UserContext UserContext
	ClientType  string
}

func (m *ReleaseSessionRequest) MarshalWire() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.SessionID)
	b = appendMessage(b, 2, m.UserContext.appendWire(nil))
	b = appendString(b, 3, m.ClientType)
	return b, nil
}

func (m *ReleaseSessionRequest) UnmarshalWire(b []byte) error {
	*m = ReleaseSessionRequest{}

	return walk(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			m.SessionID, err = f.str()
		case 2:
			var v []byte
			if v, err = f.msg(); err == nil {
				err = m.UserContext.unmarshalWire(v)
			}
		case 3:
			m.ClientType, err = f.str()
		}
		return err
	})
}

type ReleaseSessionResponse struct {
	SessionID           string
	ServerSideSessionID string
}

func (m *ReleaseSessionResponse) MarshalWire() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.SessionID)
	b = appendString(b, 2, m.ServerSideSessionID)
	return b, nil
}

func (m *ReleaseSessionResponse) UnmarshalWire(b []byte) error {
	*m = ReleaseSessionResponse{}

	return walk(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			m.SessionID, err = f.str()
		case 2:
			m.ServerSideSessionID, err = f.str()
		}
		return err
	})
}
