package relay

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/segmentio/encoding/json"
)

// MessageType is the kind of content a user submitted
type MessageType string

const (
	Text  MessageType = "text"
	File  MessageType = "file"
	Image MessageType = "image"
)

// ContextSecretKey is where a caller may embed its secret inside the payload
const ContextSecretKey = "webhookSecret"

/* Request is the envelope relayed to the webhook
 * Built once per submitted message and passed by value
 */
type Request struct {
	SessionID string         `json:"sessionId" validate:"required"`
	MessageID string         `json:"messageId" validate:"required"`
	Timestamp string         `json:"timestamp" validate:"required"`
	User      User           `json:"user"`
	Message   Message        `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
}

type User struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
}

type Message struct {
	Type    MessageType  `json:"type" validate:"required,oneof=text file image"`
	Content string       `json:"content" validate:"required"`
	File    *FileContent `json:"file,omitempty"`
}

// FileContent accompanies file and image messages; all four fields are mandatory
type FileContent struct {
	Name       string `json:"name" validate:"required"`
	Size       *int64 `json:"size" validate:"required,gte=0"`
	MimeType   string `json:"mimeType" validate:"required"`
	Base64Data string `json:"base64Data" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DecodeRequest parses and validates a payload.
// Type mismatches and missing fields are both ErrMalformedPayload.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := req.Validate(); err != nil {
		return req, err
	}
	return req, nil
}

// Validate shape-checks the request field by field
func (r Request) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrMalformedPayload, strings.Join(problems, "; "))
}

// PresentedSecret returns the secret embedded in the payload context, if any
func (r Request) PresentedSecret() string {
	if s, ok := r.Context[ContextSecretKey].(string); ok {
		return s
	}
	return ""
}

// withoutSecret returns a copy whose context no longer carries the caller's secret
func (r Request) withoutSecret() Request {
	if _, ok := r.Context[ContextSecretKey]; !ok {
		return r
	}
	ctx := make(map[string]any, len(r.Context))
	for k, v := range r.Context {
		if k != ContextSecretKey {
			ctx[k] = v
		}
	}
	r.Context = ctx
	return r
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Request.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
