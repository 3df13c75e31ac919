package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/pabliki/pabliki-server/internal/errors"
	"github.com/pabliki/pabliki-server/internal/http/response"
)

// EnvelopeVersion is the value of the "v" field on every response.
const EnvelopeVersion = response.Version

// EnvelopeTransformer wraps every huma response body in the envelope:
// {"v":1,"success":true,"data":...} or {"v":1,"success":false,"error":{...}}.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	if env, ok := v.(response.Envelope); ok {
		return env, nil
	}

	code, _ := strconv.Atoi(status)

	switch e := v.(type) {
	case *APIError:
		return response.Fail(e.Code, e.Message, e.Details), nil
	case *domainerrors.Error:
		if e.Code == domainerrors.CodeInternal {
			errorLogger.Error("internal error", "error", e)
			return response.Fail(string(domainerrors.CodeInternal), internalMessage, nil), nil
		}
		return response.Fail(string(e.Code), e.Message, e.Details), nil
	case error:
		var domainErr *domainerrors.Error
		if errors.As(e, &domainErr) {
			return EnvelopeTransformer(nil, status, domainErr)
		}
		if code >= http.StatusInternalServerError {
			return response.Fail(string(domainerrors.CodeInternal), internalMessage, nil), nil
		}
		return response.Fail(statusToCode(code), e.Error(), nil), nil
	}

	if code >= http.StatusBadRequest {
		return response.Fail(statusToCode(code), http.StatusText(code), v), nil
	}
	return response.OK(v), nil
}
