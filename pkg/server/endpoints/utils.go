package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/doodlesbykumbi/saasgate/pkg/authn"
	"github.com/doodlesbykumbi/saasgate/pkg/payment"
	"github.com/doodlesbykumbi/saasgate/pkg/permission"
	"github.com/doodlesbykumbi/saasgate/pkg/server/middleware"
	"github.com/doodlesbykumbi/saasgate/pkg/server/store"
)

const (
	validationDetail = "Validation Error"
	defaultLimit     = 100
	maxBodyBytes     = 1 << 20
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrorResponse is the body of a 400 caused by invalid input.
type ValidationErrorResponse struct {
	Detail string       `json:"detail"`
	Errors []FieldError `json:"errors"`
}

// validationError carries field errors produced outside the validator:
// malformed JSON, bad query parameters and the like.
type validationError struct {
	errors []FieldError
}

func (e *validationError) Error() string {
	parts := make([]string, 0, len(e.errors))
	for _, fe := range e.errors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return strings.Join(parts, "; ")
}

func invalidField(field, message string) error {
	return &validationError{errors: []FieldError{{Field: field, Message: message}}}
}

func respondWithError(w http.ResponseWriter, code int, detail string) {
	respondWithJSON(w, code, middleware.Detail{Detail: detail})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func clientIP(r *http.Request) string {
	if ip := middleware.RemoteIP(r); ip != nil {
		return ip.String()
	}
	return ""
}

func respondNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// writeError maps an error onto the response taxonomy. Anything it does not
// recognise is logged and reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var (
		verrs     validator.ValidationErrors
		verr      *validationError
		unknown   *permission.UnknownError
		provErr   *payment.ProviderError
		authnErr  authn.Error
		forbidden *middleware.MissingPermissionError
	)
	switch {
	case errors.As(err, &verrs):
		respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
			Detail: validationDetail,
			Errors: fieldErrors(verrs),
		})
	case errors.As(err, &verr):
		respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
			Detail: validationDetail,
			Errors: verr.errors,
		})
	case errors.As(err, &unknown):
		respondWithError(w, http.StatusBadRequest, unknown.Error())
	case errors.As(err, &provErr):
		respondWithError(w, http.StatusBadRequest, provErr.Error())
	case errors.Is(err, payment.ErrUnsupportedProvider), errors.Is(err, payment.ErrAmountOutOfRange):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &authnErr):
		respondWithError(w, http.StatusBadRequest, string(authnErr))
	case errors.As(err, &forbidden):
		respondWithError(w, http.StatusForbidden, forbidden.Error())
	case errors.Is(err, store.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, store.ErrConflict):
		respondWithError(w, http.StatusConflict, "Conflict")
	default:
		if logger == nil {
			logger = slog.Default()
		}
		logger.ErrorContext(r.Context(), "unhandled error",
			"method", r.Method, "path", r.URL.Path, "error", err)
		respondWithError(w, http.StatusInternalServerError, middleware.InternalErrorDetail)
	}
}

func fieldErrors(verrs validator.ValidationErrors) []FieldError {
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "email":
		return "value is not a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "alpha":
		return "must contain letters only"
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}

// decodeJSON reads a JSON body into dst and validates it. An empty body is
// decoded as an empty object so that required fields are reported.
func decodeJSON(r *http.Request, dst interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return invalidField("body", "could not read request body")
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, dst); err != nil {
			return invalidField("body", jsonMessage(err))
		}
	}
	return validate.Struct(dst)
}

func jsonMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Sprintf("%s must be of type %s", typeErr.Field, typeErr.Type.String())
	}
	return "invalid JSON"
}

// pathID reads a numeric route variable.
func pathID(r *http.Request, name string) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(r)[name], 10, 64)
	if err != nil || id == 0 {
		return 0, invalidField(name, "must be a positive integer")
	}
	return uint(id), nil
}

// pagination reads skip and limit from the query string. Limit defaults to
// 100 and is clamped to max.
func pagination(r *http.Request, max int) (skip, limit int, err error) {
	q := r.URL.Query()
	skip, limit = 0, defaultLimit
	if v := q.Get("skip"); v != "" {
		skip, err = strconv.Atoi(v)
		if err != nil || skip < 0 {
			return 0, 0, invalidField("skip", "must be a non-negative integer")
		}
	}
	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 {
			return 0, 0, invalidField("limit", "must be a positive integer")
		}
	}
	if max > 0 && limit > max {
		limit = max
	}
	return skip, limit, nil
}
