package serde

import (
	"errors"
	"fmt"

	"dfserde/internal/engine"
)

// validate checks a fully parsed set of column headers before any frame is
// built. Lengths are compared first; then every column's values are decoded
// against its dtype. Value failures of all columns are joined in column
// order.
func (c *Codec) validate(headers []columnHeader) ([][]engine.Value, error) {
	if err := checkLengths(headers); err != nil {
		return nil, err
	}

	values := make([][]engine.Value, len(headers))
	errs := c.forEach(len(headers), func(i int) error {
		h := headers[i]
		v, err := decodeValues(h.dtype, h.elems)
		if err != nil {
			return inColumn(err, h.name)
		}
		values[i] = v
		return nil
	})
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return values, nil
}

func checkLengths(headers []columnHeader) error {
	if len(headers) == 0 {
		return nil
	}
	first := headers[0]
	for _, h := range headers[1:] {
		if len(h.elems) != len(first.elems) {
			return &Error{
				Kind: ErrLengthMismatch,
				Msg: fmt.Sprintf("column %s has length %d, column %s has length %d",
					quote(first.name), len(first.elems), quote(h.name), len(h.elems)),
			}
		}
	}
	return nil
}
