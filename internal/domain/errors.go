package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned by repositories when a row does not exist.
var ErrNotFound = errors.New("not found")

type ErrorCode string

const (
	CodeValidation         ErrorCode = "VALIDATION_ERROR"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeCyclicDependency   ErrorCode = "CYCLIC_DEPENDENCY"
	CodeScenarioNotFound   ErrorCode = "SCENARIO_NOT_FOUND"
	CodeAncestorNotFound   ErrorCode = "ANCESTOR_NOT_FOUND"
	CodeCycleDetected      ErrorCode = "CYCLE_DETECTED"
	CodeConcurrentMerge    ErrorCode = "CONCURRENT_MERGE_IN_PROGRESS"
	CodeConcurrentCascade  ErrorCode = "CONCURRENT_CASCADE_IN_PROGRESS"
	CodePartialFailure     ErrorCode = "PARTIAL_FAILURE"
	CodePersistenceFailure ErrorCode = "PERSISTENCE_FAILURE"
)

// PlanError is the single error type surfaced by the planning core.
// EntityIDs carries the offending ids where the code has them (cycle members,
// failed phase ids, missing scenarios).
type PlanError struct {
	Code      ErrorCode
	Message   string
	EntityIDs []string
	Err       error
}

func (e *PlanError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.EntityIDs) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.EntityIDs, ", "))
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *PlanError) Unwrap() error { return e.Err }

// Is matches another *PlanError by code, so errors.Is(err, &PlanError{Code: CodeX}) works.
func (e *PlanError) Is(target error) bool {
	t, ok := target.(*PlanError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// HasCode reports whether err (or anything it wraps) is a PlanError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var pe *PlanError
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// CodeOf returns the PlanError code of err, or "" for foreign errors.
func CodeOf(err error) ErrorCode {
	var pe *PlanError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// IsConcurrentOperation reports whether err is a transient lock conflict the caller may retry.
func IsConcurrentOperation(err error) bool {
	return HasCode(err, CodeConcurrentMerge) || HasCode(err, CodeConcurrentCascade)
}

func Validation(msg string, ids ...string) error {
	return &PlanError{Code: CodeValidation, Message: msg, EntityIDs: ids}
}

func NotFound(kind, id string) error {
	return &PlanError{Code: CodeNotFound, Message: kind + " not found", EntityIDs: []string{id}}
}

func ScenarioNotFound(id string) error {
	return &PlanError{Code: CodeScenarioNotFound, Message: "scenario not found", EntityIDs: []string{id}}
}

func AncestorNotFound(sourceID, targetID string) error {
	return &PlanError{
		Code:      CodeAncestorNotFound,
		Message:   "scenarios share no common ancestor",
		EntityIDs: []string{sourceID, targetID},
	}
}

func CycleDetected(ids []string) error {
	return &PlanError{Code: CodeCycleDetected, Message: "scenario ancestor chain does not terminate", EntityIDs: ids}
}

// CyclicDependency reports the phase timeline ids involved in a dependency cycle, sorted.
func CyclicDependency(ids []string) error {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return &PlanError{Code: CodeCyclicDependency, Message: "dependency graph contains a cycle", EntityIDs: sorted}
}

func ConcurrentMerge(scenarioID string) error {
	return &PlanError{Code: CodeConcurrentMerge, Message: "another operation holds the scenario lock", EntityIDs: []string{scenarioID}}
}

func ConcurrentCascade(scenarioID string) error {
	return &PlanError{Code: CodeConcurrentCascade, Message: "another operation holds the scenario lock", EntityIDs: []string{scenarioID}}
}

func PartialFailure(ids []string, reasons []string) error {
	msg := "cascade batch rejected"
	if len(reasons) > 0 {
		msg += ": " + strings.Join(reasons, "; ")
	}
	return &PlanError{Code: CodePartialFailure, Message: msg, EntityIDs: ids}
}

// Persistence wraps a store failure. PlanErrors pass through untouched so a
// validation failure raised inside a transaction keeps its code.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PlanError
	if errors.As(err, &pe) {
		return err
	}
	return &PlanError{Code: CodePersistenceFailure, Message: fmt.Sprintf("%s failed", op), Err: err}
}
