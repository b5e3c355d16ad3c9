package server

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"connectrpc.com/connect"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/at-ishikawa/mentalmath/internal/answer"
	"github.com/at-ishikawa/mentalmath/internal/auth"
	"github.com/at-ishikawa/mentalmath/internal/profile"
	"github.com/at-ishikawa/mentalmath/internal/question"
	"github.com/at-ishikawa/mentalmath/internal/session"
)

var errSessionNotFound = errors.New("session not found")

type requestValidator struct {
	validate *validator.Validate
	trans    ut.Translator
}

func newRequestValidator() (*requestValidator, error) {
	validate := validator.New()

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, fmt.Errorf("failed to register default translations: %w", err)
	}
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &requestValidator{validate: validate, trans: trans}, nil
}

// check returns an InvalidArgument error listing every violated field.
func (v *requestValidator) check(msg any) *connect.Error {
	err := v.validate.Struct(msg)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	messages := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		messages = append(messages, fieldErr.Translate(v.trans))
	}
	return connect.NewError(connect.CodeInvalidArgument, errors.New(strings.Join(messages, "; ")))
}

// toConnectError maps domain errors onto Connect codes.
func toConnectError(err error) error {
	var connectErr *connect.Error
	switch {
	case errors.As(err, &connectErr):
		return err
	case auth.IsKind(err, auth.KindInvalidCredentials), auth.IsKind(err, auth.KindUnauthenticated):
		return connect.NewError(connect.CodeUnauthenticated, err)
	case auth.IsKind(err, auth.KindNetwork):
		return connect.NewError(connect.CodeUnavailable, err)
	case auth.IsKind(err, auth.KindProvider):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, errSessionNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, answer.ErrInvalidInput),
		errors.Is(err, session.ErrInvalidSettings),
		errors.Is(err, question.ErrInvalidParams),
		errors.Is(err, question.ErrUnknownOperation),
		errors.Is(err, profile.ErrUnknownColorScheme):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, session.ErrNotActive),
		errors.Is(err, session.ErrAwaitingNext),
		errors.Is(err, session.ErrNotFinished):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}
