package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/rackhaus/rackd/internal/common/apperrors"
)

type Error struct {
	Description string `json:"description"`
	StatusCode  int    `json:"http_status_code"`
}

type errorRsp struct {
	Result int    `json:"result"`
	Error  string `json:"error"`
}

const Failure int = 0

func (e *Error) Send(w http.ResponseWriter) {
	if w == nil {
		return
	}
	rsp := &errorRsp{
		Result: Failure,
		Error:  e.Description,
	}
	rspJson, err := json.Marshal(rsp)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Unable to parse error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	w.Write(rspJson)
}

func (e *Error) Error() string {
	return e.Description
}

func SendError(w http.ResponseWriter, err apperrors.Error) {
	if err == nil {
		return
	}
	statusCode := err.StatusCode()
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}
	httperror := &Error{
		StatusCode:  statusCode,
		Description: err.ErrorAll(),
	}
	httperror.Send(w)
}

func ErrApplicationError(msg ...string) *Error {
	description := "application error"
	if len(msg) > 0 {
		description = msg[0]
	}
	return &Error{
		StatusCode:  http.StatusInternalServerError,
		Description: description,
	}
}

func ErrInvalidRequest(msg ...string) *Error {
	description := "invalid request"
	if len(msg) > 0 {
		description = msg[0]
	}
	return &Error{
		StatusCode:  http.StatusBadRequest,
		Description: description,
	}
}

func ErrUnableToParseReqData() *Error {
	return &Error{
		StatusCode:  http.StatusBadRequest,
		Description: "unable to parse request data",
	}
}

func ErrReqMethodNotSupported() *Error {
	return &Error{
		StatusCode:  http.StatusMethodNotAllowed,
		Description: "request method not supported",
	}
}
