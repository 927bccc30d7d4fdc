package diagx

import "fmt"

// Location pins a diagnostic to a function and instruction offset, the
// two coordinates a verifier diagnostic needs to carry. Func is -1 and
// Offset is -1 when not applicable (e.g. a writer-overflow error has no
// function/offset of its own).
type Location struct {
	Func   int
	Offset int
}

// NoLocation is the zero value for diagnostics that have no function or
// instruction coordinate.
var NoLocation = Location{Func: -1, Offset: -1}

// Diagnostic is a single error-kind report: code, severity, location,
// and a human message.
type Diagnostic struct {
	Code     Code
	Severity Severity
	Loc      Location
	Message  string
}

// Error satisfies the error interface so a Diagnostic can be returned
// directly from a fallible operation.
func (d Diagnostic) Error() string {
	if d.Loc == NoLocation {
		return fmt.Sprintf("%s [%s]: %s", d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("%s [%s] fn#%d @%d: %s", d.Severity, d.Code, d.Loc.Func, d.Loc.Offset, d.Message)
}

// New builds a fatal (SevError) diagnostic with no location.
func New(code Code, message string) Diagnostic {
	return Diagnostic{Code: code, Severity: SevError, Loc: NoLocation, Message: message}
}

// At builds a fatal diagnostic located at a function/instruction offset.
func At(code Code, funcIdx, offset int, message string) Diagnostic {
	return Diagnostic{Code: code, Severity: SevError, Loc: Location{Func: funcIdx, Offset: offset}, Message: message}
}
