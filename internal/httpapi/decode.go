package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"

	"ollamadash/internal/modelfile"
)

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// readJSONBody enforces the JSON content type and the body size limit. On
// failure it has already written the error response.
func readJSONBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return nil, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	b, err := io.ReadAll(r.Body)
	if err != nil {
		// Oversized bodies also land here; keep the message generic.
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	if !gjson.ValidBytes(b) {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	return b, true
}

// decodeJSON reads, decodes and validates a request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) ([]byte, bool) {
	b, ok := readJSONBody(w, r)
	if !ok {
		return nil, false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	if err := validate.Struct(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, validationMessage(err))
		return nil, false
	}
	return b, true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	if fe.Tag() == "required" {
		if fe.Field() == "name" {
			return "model name is required"
		}
		return fmt.Sprintf("%s is required", fe.Field())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

// orderedParameters reads the "parameters" object of body in document order.
// Non-string values keep their JSON text (0.7, true, ["a","b"]).
func orderedParameters(body []byte) []modelfile.Parameter {
	res := gjson.GetBytes(body, "parameters")
	if !res.IsObject() {
		return nil
	}
	var out []modelfile.Parameter
	res.ForEach(func(k, v gjson.Result) bool {
		out = append(out, modelfile.Parameter{Key: k.String(), Value: v.String()})
		return true
	})
	return out
}
