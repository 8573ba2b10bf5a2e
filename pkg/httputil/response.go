package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	vgaerrors "github.com/matzehuels/vgadepth/pkg/errors"
)

// MaxBodyBytes bounds request bodies read by DecodeJSON.
const MaxBodyBytes = 32 << 20

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string         `json:"error"`
	Code  vgaerrors.Code `json:"code,omitempty"`
}

// StatusFor returns the HTTP status for an error code.
func StatusFor(code vgaerrors.Code) int {
	switch code {
	case vgaerrors.ErrCodeInvalidInput,
		vgaerrors.ErrCodeInvalidArgument,
		vgaerrors.ErrCodeRequiredArgument,
		vgaerrors.ErrCodeInvalidFormat,
		vgaerrors.ErrCodeInvalidPath,
		vgaerrors.ErrCodeOutOfBounds,
		vgaerrors.ErrCodePointOutsideRegion,
		vgaerrors.ErrCodeInvalidCell:
		return http.StatusBadRequest
	case vgaerrors.ErrCodeDuplicateColumn:
		return http.StatusConflict
	case vgaerrors.ErrCodeNotFound,
		vgaerrors.ErrCodeFileNotFound,
		vgaerrors.ErrCodeColumnNotFound,
		vgaerrors.ErrCodeRunNotFound:
		return http.StatusNotFound
	case vgaerrors.ErrCodeCancelled:
		return http.StatusRequestTimeout
	case vgaerrors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes err as an ErrorBody. Errors without a code are reported
// as a generic internal error so their text does not leak.
func WriteError(w http.ResponseWriter, err error) {
	code := vgaerrors.GetCode(err)
	status := StatusFor(code)
	msg := vgaerrors.UserMessage(err)
	if code == "" {
		msg = http.StatusText(status)
	}
	WriteJSON(w, status, ErrorBody{Error: msg, Code: code})
}

// DecodeJSON decodes the request body into v. Bodies above MaxBodyBytes,
// unknown fields and trailing data are rejected with INVALID_FORMAT.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return vgaerrors.New(vgaerrors.ErrCodeInvalidInput, "request body exceeds %d bytes", tooLarge.Limit)
		}
		return vgaerrors.Wrap(vgaerrors.ErrCodeInvalidFormat, err, "invalid request body")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return vgaerrors.New(vgaerrors.ErrCodeInvalidFormat, "invalid request body: unexpected data after JSON value")
	}
	return nil
}
