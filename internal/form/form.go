// Package form tracks form values, local validation and submission state.
// Validation uses the validate struct tags understood by
// go-playground/validator; field errors are keyed by json name.
package form

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/five82/tickerdeck/internal/api"
	"github.com/five82/tickerdeck/internal/notify"
)

const (
	defaultSuccessMsg = "saved"
	defaultFailureMsg = "operation failed, please retry"
)

var (
	// ErrInvalid is returned by Submit when local validation fails. No call
	// is made and no notice is shown.
	ErrInvalid = errors.New("form has invalid fields")
	// ErrBusy is returned by Submit while a previous submission is running.
	ErrBusy = errors.New("form is already submitting")
)

// SubmitFunc sends the form values to the backend.
type SubmitFunc[T, R any] func(ctx context.Context, values T) (R, error)

// Options configures a Form. Submit is required.
//
// Initial is copied by assignment. When T holds slices, maps or pointers,
// set Clone so edits through Update cannot reach the initial snapshot.
type Options[T, R any] struct {
	Initial T
	Clone   func(T) T
	Submit  SubmitFunc[T, R]
	// Validate adds checks that struct tags cannot express. It returns
	// messages keyed by field name.
	Validate func(T) map[string]string

	OnSuccess func(R)
	OnError   func(error)

	Notifier       notify.Notifier
	SuccessMessage string
	FailureMessage string
}

// Form tracks the values, field errors and submission state of one form.
type Form[T, R any] struct {
	initial  T
	clone    func(T) T
	submit   SubmitFunc[T, R]
	extra    func(T) map[string]string
	onOK     func(R)
	onErr    func(error)
	notifier notify.Notifier
	okMsg    string
	failMsg  string

	mu         sync.Mutex
	values     T
	fields     map[string]string
	submitting bool
	err        error
}

// New builds a Form seeded with opts.Initial.
func New[T, R any](opts Options[T, R]) *Form[T, R] {
	f := &Form[T, R]{
		initial:  opts.Initial,
		clone:    opts.Clone,
		submit:   opts.Submit,
		extra:    opts.Validate,
		onOK:     opts.OnSuccess,
		onErr:    opts.OnError,
		notifier: opts.Notifier,
		okMsg:    opts.SuccessMessage,
		failMsg:  opts.FailureMessage,
	}
	if f.clone == nil {
		f.clone = func(v T) T { return v }
	}
	f.values = f.clone(f.initial)
	if f.notifier == nil {
		f.notifier = notify.Discard
	}
	if f.okMsg == "" {
		f.okMsg = defaultSuccessMsg
	}
	if f.failMsg == "" {
		f.failMsg = defaultFailureMsg
	}
	return f
}

// Values returns the current values.
func (f *Form[T, R]) Values() T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values
}

// Update edits the values in place.
func (f *Form[T, R]) Update(edit func(*T)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	edit(&f.values)
}

// FieldErrors returns the validation messages from the last Submit, keyed
// by the field's json name.
func (f *Form[T, R]) FieldErrors() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(f.fields))
	for k, v := range f.fields {
		out[k] = v
	}
	return out
}

// Submitting reports whether a submission is in progress.
func (f *Form[T, R]) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// Err returns the error of the last failed submission.
func (f *Form[T, R]) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Submit validates the values and sends them. Validation failures return
// ErrInvalid. A failed call is recorded, noticed and returned unchanged.
func (f *Form[T, R]) Submit(ctx context.Context) (R, error) {
	var zero R

	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return zero, ErrBusy
	}
	values := f.values
	fields := Check(values)
	if f.extra != nil {
		for k, v := range f.extra(values) {
			if fields == nil {
				fields = map[string]string{}
			}
			if _, ok := fields[k]; !ok {
				fields[k] = v
			}
		}
	}
	f.fields = fields
	if len(fields) > 0 {
		f.mu.Unlock()
		return zero, ErrInvalid
	}
	f.submitting = true
	f.err = nil
	f.mu.Unlock()

	var (
		result R
		err    error
	)
	if f.submit == nil {
		err = errors.New("form: no submit function")
	} else {
		result, err = f.submit(ctx, values)
	}

	f.mu.Lock()
	f.submitting = false
	if err != nil {
		f.err = err
	}
	f.mu.Unlock()

	if err != nil {
		if !api.Notified(err) {
			f.notifier.Notify(notify.Error, f.failMsg)
		}
		if f.onErr != nil {
			f.onErr(err)
		}
		return zero, err
	}
	f.notifier.Notify(notify.Success, f.okMsg)
	if f.onOK != nil {
		f.onOK(result)
	}
	return result, nil
}

// Reset restores the initial values and clears field errors and the last
// error.
func (f *Form[T, R]) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = f.clone(f.initial)
	f.fields = nil
	f.err = nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// Check runs the validate struct tags on values. Non-struct values always
// pass.
func Check(values any) map[string]string {
	err := validate.Struct(values)
	if err == nil {
		return nil
	}
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"": err.Error()}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, ok := out[fe.Field()]; !ok {
			out[fe.Field()] = fieldMessage(fe)
		}
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "email":
		return "not a valid email address"
	case "numeric":
		return "digits only"
	case "nefield":
		return "must differ from " + strings.ToLower(fe.Param())
	case "eqfield":
		return "does not match"
	case "oneof":
		return "one of " + fe.Param()
	default:
		return "invalid " + fe.Tag()
	}
}

// Summary joins field errors into one line, sorted by field.
func Summary(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			parts = append(parts, fields[k])
			continue
		}
		parts = append(parts, k+" "+fields[k])
	}
	return strings.Join(parts, "; ")
}
