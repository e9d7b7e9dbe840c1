package handlers

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators adds the custom binding rules to gin's validator.
// Safe to call more than once.
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("unexpected binding validator engine")
			return
		}
		v.RegisterTagNameFunc(fieldName)
		err = v.RegisterValidation("httpurl", validateHTTPURL)
	})
	return err
}

// fieldName reports fields by their json or query name.
func fieldName(field reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		name, _, _ := strings.Cut(field.Tag.Get(key), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return field.Name
}

func validateHTTPURL(fl validator.FieldLevel) bool {
	_, err := NormalizeURL(fl.Field().String())
	return err == nil
}

// MaxURLLength bounds the stored form of a task URL, in bytes.
const MaxURLLength = 2048

var ErrURLTooLong = fmt.Errorf("url must be at most %d characters once encoded", MaxURLLength)

// NormalizeURL accepts absolute http(s) URLs with a host. The scheme and host
// are lower-cased and an empty path becomes "/". The length limit applies to
// the encoded result, which is what gets stored.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("url is empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("url is malformed: %w", err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return "", errors.New("url must include a host")
	}

	u.Scheme = scheme
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}

	normalized := u.String()
	if len(normalized) > MaxURLLength {
		return "", ErrURLTooLong
	}
	return normalized, nil
}

// describeBindingError renders binding failures without echoing Go type names.
func describeBindingError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			messages = append(messages, field+" is required")
		case "httpurl":
			messages = append(messages, field+" must be a valid http or https URL")
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		case "gte":
			messages = append(messages, fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param()))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of [%s]", field, fe.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s failed on %s", field, fe.Tag()))
		}
	}
	return strings.Join(messages, "; ")
}
