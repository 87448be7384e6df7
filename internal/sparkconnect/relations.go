package sparkconnect

import (
	"errors"
)

// Relation is a logical plan node. Exactly one of Range, WithColumnsRenamed
// or SQL is set.
type Relation struct {
	PlanID int64

	Range              *Range
	WithColumnsRenamed *WithColumnsRenamed
	SQL                *SQL
}

// Range produces a single int64 column "id" with values start, start+step ...
// up to but excluding End.
type Range struct {
	Start         int64
	End           int64
	Step          int64
	NumPartitions int32
}

// WithColumnsRenamed renames columns of Input according to Renames
// (existing name -> new name).
type WithColumnsRenamed struct {
	Input   *Relation
	Renames map[string]string
}

// SQL is a relation defined by a sql query.
type SQL struct {
	Query string
}

// NewRange returns a relation with values 0 ... n-1 in a column named "id".
func NewRange(n int64) *Relation {
	return &Relation{
		Range: &Range{End: n, Step: 1},
	}
}

// NewSQL returns a relation defined by query.
func NewSQL(query string) *Relation {
	return &Relation{
		SQL: &SQL{Query: query},
	}
}

// RenameColumns wraps r in a rename relation.
func (r *Relation) RenameColumns(renames map[string]string) *Relation {
	return &Relation{
		WithColumnsRenamed: &WithColumnsRenamed{
			Input:   r,
			Renames: renames,
		},
	}
}

var errEmptyRelation = errors.New("relation has no type set")

func (r *Relation) marshalWire() ([]byte, error) {
	var b []byte

	if r.PlanID != 0 {
		// RelationCommon { int64 plan_id = 2; }
		b = appendMessage(b, 1, appendOptionalInt64(nil, 2, r.PlanID))
	}

	switch {
	case r.SQL != nil:
		b = appendMessage(b, 10, appendString(nil, 1, r.SQL.Query))
	case r.Range != nil:
		var rng []byte
		rng = appendOptionalInt64(rng, 1, r.Range.Start)
		rng = appendInt64(rng, 2, r.Range.End)
		rng = appendOptionalInt64(rng, 3, r.Range.Step)
		if r.Range.NumPartitions > 0 {
			rng = appendOptionalInt64(rng, 4, int64(r.Range.NumPartitions))
		}
		b = appendMessage(b, 15, rng)
	case r.WithColumnsRenamed != nil:
		if r.WithColumnsRenamed.Input == nil {
			return nil, errors.New("rename relation has no input")
		}
		input, err := r.WithColumnsRenamed.Input.marshalWire()
		if err != nil {
			return nil, err
		}
		var rename []byte
		rename = appendMessage(rename, 1, input)
		rename = appendStringMap(rename, 2, r.WithColumnsRenamed.Renames)
		b = appendMessage(b, 19, rename)
	default:
		return nil, errEmptyRelation
	}

	return b, nil
}

func (r *Relation) unmarshalWire(b []byte) error {
	*r = Relation{}

	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			v, err := f.msg()
			if err != nil {
				return err
			}
			return walk(v, func(cf field) error {
				if cf.num != 2 {
					return nil
				}
				var err error
				r.PlanID, err = cf.int64()
				return err
			})
		case 10:
			v, err := f.msg()
			if err != nil {
				return err
			}
			r.SQL = new(SQL)
			return walk(v, func(sf field) error {
				if sf.num != 1 {
					return nil
				}
				var err error
				r.SQL.Query, err = sf.str()
				return err
			})
		case 15:
			v, err := f.msg()
			if err != nil {
				return err
			}
			r.Range = new(Range)
			return r.Range.unmarshalWire(v)
		case 19:
			v, err := f.msg()
			if err != nil {
				return err
			}
			r.WithColumnsRenamed = &WithColumnsRenamed{Renames: make(map[string]string)}
			return r.WithColumnsRenamed.unmarshalWire(v)
		}
		return nil
	})
}

func (rng *Range) unmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			rng.Start, err = f.int64()
		case 2:
			rng.End, err = f.int64()
		case 3:
			rng.Step, err = f.int64()
		case 4:
			var n int64
			n, err = f.int64()
			rng.NumPartitions = int32(n)
		}
		return err
	})
}

func (w *WithColumnsRenamed) unmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			v, err := f.msg()
			if err != nil {
				return err
			}
			w.Input = new(Relation)
			return w.Input.unmarshalWire(v)
		case 2:
			v, err := f.msg()
			if err != nil {
				return err
			}
			key, value, err := decodeStringMapEntry(v)
			if err != nil {
				return err
			}
			w.Renames[key] = value
		}
		return nil
	})
}
