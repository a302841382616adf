package measure

import "golang.org/x/xerrors"

var (
	// ErrConfig reports an invalid combination of mode, schema or options.
	ErrConfig = xerrors.New("invalid measurement configuration")
	// ErrUnknownColumn reports a column name missing from the schema.
	ErrUnknownColumn = xerrors.New("unknown column")
	// ErrResource reports that the output destination could not be used.
	ErrResource = xerrors.New("output resource error")
	// ErrUnbalanced reports Begin and End calls that do not pair up.
	ErrUnbalanced = xerrors.New("unbalanced begin/end")
	// ErrColumnOverflow reports a Write that ran past the last schema column.
	ErrColumnOverflow = xerrors.New("column not found before end of schema")
	// ErrNoObservations reports finalizing a column that was never measured.
	ErrNoObservations = xerrors.New("column has no observations")
)
