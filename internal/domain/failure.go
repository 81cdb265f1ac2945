package domain

import (
	"errors"
	"fmt"
)

// Failure - единственный вид отказа удаленного сервиса.
// Сетевая ошибка, HTTP-статус и битый ответ сворачиваются в одно сообщение для пользователя.
type Failure struct {
	Message string
	Status  int // HTTP-статус, 0 если ответа не было
	Cause   error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Cause }

func Fail(msg string) *Failure {
	return &Failure{Message: msg}
}

func Failf(format string, args ...any) *Failure {
	return &Failure{Message: fmt.Sprintf(format, args...)}
}

// AsFailure приводит любую ошибку к Failure, сохраняя исходную как причину.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Message: err.Error(), Cause: err}
}
