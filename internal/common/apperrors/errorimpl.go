package apperrors

type appError struct {
	msg        string
	base       Error
	wrapped    []error
	statuscode int
}

func (e *appError) Error() string {
	return e.msg
}

func (e *appError) ErrorAll() string {
	msg := e.msg
	for i, err := range e.wrapped {
		if i == 0 {
			msg += ": "
		} else {
			msg += "; "
		}
		msg += err.Error()
	}
	return msg
}

func (e *appError) Unwrap() []error {
	return e.wrapped
}

func (e *appError) New(msg string) Error {
	return &appError{
		msg:        msg,
		statuscode: e.statuscode,
		base:       e,
	}
}

// derive returns a shallow copy so sentinels are never mutated in place.
func (e *appError) derive() *appError {
	return &appError{
		msg:        e.msg,
		base:       e,
		statuscode: e.statuscode,
	}
}

func (e *appError) Msg(msg string) Error {
	d := e.derive()
	d.msg = msg
	return d
}

func (e *appError) MsgErr(msg string, err ...error) Error {
	d := e.derive()
	d.msg = msg
	d.wrapped = append(d.wrapped, err...)
	return d
}

func (e *appError) Err(err ...error) Error {
	d := e.derive()
	d.wrapped = append(d.wrapped, err...)
	return d
}

func (e *appError) Is(target error) bool {
	if e == target || e.base == target {
		return true
	}
	if e.base != nil && e.base.Is(target) {
		return true
	}
	for _, err := range e.wrapped {
		if err == target {
			return true
		}
	}
	return false
}

func (e *appError) SetStatusCode(code int) Error {
	d := e.derive()
	d.statuscode = code
	return d
}

func (e *appError) StatusCode() int {
	return e.statuscode
}

func New(msg string) Error {
	return &appError{msg: msg}
}
