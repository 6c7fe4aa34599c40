// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error. Codes follow a
// domain.operation.reason convention; the trailing reason segment drives
// the Is* predicates below.
type Code string

const (
	CodeIndexOpenFailure        Code = "index.open.failure"
	CodeIndexQueryFailure       Code = "index.query.failure"
	CodeIndexAddInvalidInput    Code = "index.add.invalid_input"
	CodeIndexBackendUnsupported Code = "index.backend.unsupported"

	CodeProviderRequestInvalid  Code = "provider.request.invalid"
	CodeProviderUpstreamFailure Code = "provider.upstream.failure"
	CodeProviderUpstreamTimeout Code = "provider.upstream.timeout"
	CodeProviderSchemaViolation Code = "provider.response.schema_violation"
	CodeProviderNotFound        Code = "provider.registry.not_found"
	CodeProviderInvalidModelRef Code = "provider.routing.invalid_model_ref"
	CodeEmbeddingFailure        Code = "provider.embedding.upstream_failure"

	CodeSessionNotFound    Code = "research.session.not_found"
	CodeSessionBusy        Code = "research.session.busy"
	CodeGatherEmbedFailure Code = "research.gather.embed.upstream_failure"
	CodeGatherInvalidInput Code = "research.gather.invalid_input"
	CodeAnswerGenFailure   Code = "research.answer.generation_failure"
	CodeToolInvalidInput   Code = "research.tool.invalid_input"
	CodeToolNotFound       Code = "research.tool.not_found"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeServerRequestInvalid  Code = "server.request.invalid"
	CodeServerEntityNotFound  Code = "server.entity.not_found"
	CodeServerInternalFailure Code = "server.internal.failure"
	CodeServerStartFailure    Code = "server.start.failure"
	CodeServerShutdownFailure Code = "server.shutdown.failure"

	CodeCLIInputInvalid Code = "cli.input.invalid"
	CodeCLISetupFailure Code = "cli.setup.failure"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldSessionID(value string) Attr {
	return Field("session_id", value)
}

func FieldChunkID(value string) Attr {
	return Field("chunk_id", value)
}

func FieldProvider(value string) Attr {
	return Field("provider", value)
}

func FieldModel(value string) Attr {
	return Field("model", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeServerInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_model_ref"
}

// IsSchemaViolation reports whether a collaborator response failed
// structural validation. Schema violations are terminal for their unit
// and are never retried within a batch.
func IsSchemaViolation(err error) bool {
	return reason(CodeOf(err)) == "schema_violation"
}

// IsBusy reports a per-session concurrency violation: a second gather or
// answer call arrived while one was already in flight.
func IsBusy(err error) bool {
	return reason(CodeOf(err)) == "busy"
}

func IsTimeout(err error) bool {
	return reason(CodeOf(err)) == "timeout"
}

// IsTransient reports whether the failure is a candidate for retry with
// backoff: upstream collaborator failures and timeouts qualify, schema
// violations and invalid input do not.
func IsTransient(err error) bool {
	code := CodeOf(err)
	r := reason(code)
	if r == "timeout" || r == "upstream_failure" {
		return true
	}
	return strings.Contains(string(code), "upstream") && r == "failure"
}

func HTTPStatus(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsBusy(err):
		return http.StatusConflict
	case IsInvalidInput(err) || IsSchemaViolation(err):
		return http.StatusBadRequest
	case IsTimeout(err):
		return http.StatusGatewayTimeout
	case IsTransient(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeServerInternalFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
