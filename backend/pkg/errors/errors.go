package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeValidation represents caller-input validation failures
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeFaction represents faction lifecycle errors
	ErrorTypeFaction ErrorType = "faction"
	// ErrorTypeStorage represents persistence adapter errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeGateway represents platform gateway errors
	ErrorTypeGateway ErrorType = "gateway"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// Category returns the error type. Promoted through embedding, so every
// typed error in this package answers it.
func (e *BaseError) Category() ErrorType {
	return e.Type
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Validation Errors

// ErrDuplicateFactionName is returned when a faction name collides
// case-insensitively with an existing faction.
type ErrDuplicateFactionName struct {
	*BaseError
	Name string
}

func NewDuplicateFactionName(name string) *ErrDuplicateFactionName {
	return &ErrDuplicateFactionName{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("faction name already taken: %s", name), nil),
		Name:      name,
	}
}

// ErrInvalidFactionName is returned when a faction name fails the
// length/charset invariants.
type ErrInvalidFactionName struct {
	*BaseError
	Name   string
	Reason string
}

func NewInvalidFactionName(name, reason string) *ErrInvalidFactionName {
	return &ErrInvalidFactionName{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("invalid faction name %q: %s", name, reason), nil),
		Name:      name,
		Reason:    reason,
	}
}

// ErrDescriptionTooLong is returned when a faction description exceeds the bound
type ErrDescriptionTooLong struct {
	*BaseError
	Length int
	Max    int
}

func NewDescriptionTooLong(length, max int) *ErrDescriptionTooLong {
	return &ErrDescriptionTooLong{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("description too long: %d chars (max %d)", length, max), nil),
		Length:    length,
		Max:       max,
	}
}

// Faction Lifecycle Errors

// ErrAlreadyInFaction is returned when a user tries to join a faction while
// still belonging to another one.
type ErrAlreadyInFaction struct {
	*BaseError
	UserID    string
	FactionID string
}

func NewAlreadyInFaction(userID, factionID string) *ErrAlreadyInFaction {
	return &ErrAlreadyInFaction{
		BaseError: NewBaseError(ErrorTypeFaction, fmt.Sprintf("user %s already belongs to faction %s", userID, factionID), nil),
		UserID:    userID,
		FactionID: factionID,
	}
}

// ErrFactionNotFound is returned when a lifecycle operation names a faction
// that does not exist. Plain lookups return nil instead.
type ErrFactionNotFound struct {
	*BaseError
	FactionID string
}

func NewFactionNotFound(factionID string) *ErrFactionNotFound {
	return &ErrFactionNotFound{
		BaseError: NewBaseError(ErrorTypeFaction, fmt.Sprintf("faction not found: %s", factionID), nil),
		FactionID: factionID,
	}
}

// ErrAllianceNotFound is returned when an aura operation names a missing
// pair record.
type ErrAllianceNotFound struct {
	*BaseError
	AllianceID string
}

func NewAllianceNotFound(allianceID string) *ErrAllianceNotFound {
	return &ErrAllianceNotFound{
		BaseError: NewBaseError(ErrorTypeFaction, fmt.Sprintf("alliance not found: %s", allianceID), nil),
		AllianceID: allianceID,
	}
}

// ErrNotAMember is returned when an operation requires faction membership
// the user does not have.
type ErrNotAMember struct {
	*BaseError
	UserID    string
	FactionID string
}

func NewNotAMember(userID, factionID string) *ErrNotAMember {
	return &ErrNotAMember{
		BaseError: NewBaseError(ErrorTypeFaction, fmt.Sprintf("user %s is not a member of faction %s", userID, factionID), nil),
		UserID:    userID,
		FactionID: factionID,
	}
}

// ErrSoleLeader is returned when the sole leader attempts to leave without
// transferring leadership first.
type ErrSoleLeader struct {
	*BaseError
	UserID    string
	FactionID string
}

func NewSoleLeader(userID, factionID string) *ErrSoleLeader {
	return &ErrSoleLeader{
		BaseError: NewBaseError(ErrorTypeFaction, "leader must transfer leadership before leaving", nil),
		UserID:    userID,
		FactionID: factionID,
	}
}

// ErrFactionFull is returned when a faction is at the configured member cap
type ErrFactionFull struct {
	*BaseError
	FactionID string
	Max       int
}

func NewFactionFull(factionID string, max int) *ErrFactionFull {
	return &ErrFactionFull{
		BaseError: NewBaseError(ErrorTypeFaction, fmt.Sprintf("faction %s is full (max %d members)", factionID, max), nil),
		FactionID: factionID,
		Max:       max,
	}
}

// ErrUnknownRelationType is returned when an alliance type is outside the
// closed enum. This is a programmer error and fails loudly at validation.
type ErrUnknownRelationType struct {
	*BaseError
	Type string
}

func NewUnknownRelationType(relType string) *ErrUnknownRelationType {
	return &ErrUnknownRelationType{
		BaseError: NewBaseError(ErrorTypeFaction, fmt.Sprintf("unknown relation type: %s", relType), nil),
		Type:      relType,
	}
}

// Storage Errors

// ErrStorageUnavailable is returned when the persistence adapter cannot be reached
type ErrStorageUnavailable struct {
	*BaseError
	URI string
}

func NewStorageUnavailable(uri string, err error) *ErrStorageUnavailable {
	return &ErrStorageUnavailable{
		BaseError: NewBaseError(ErrorTypeStorage, fmt.Sprintf("storage unavailable: %s", uri), err),
		URI:       uri,
	}
}

// ErrStorageQueryFailed is returned when a storage query fails
type ErrStorageQueryFailed struct {
	*BaseError
	Op string
}

func NewStorageQueryFailed(op string, err error) *ErrStorageQueryFailed {
	return &ErrStorageQueryFailed{
		BaseError: NewBaseError(ErrorTypeStorage, fmt.Sprintf("storage operation failed: %s", op), err),
		Op:        op,
	}
}

// Gateway Errors

// ErrGatewayNotReady is returned when the event bus is used before a live
// gateway connection has been attached.
var ErrGatewayNotReady = NewBaseError(ErrorTypeGateway, "gateway not attached", nil)

// ErrNotifySendFailed is returned when posting a notification fails
type ErrNotifySendFailed struct {
	*BaseError
	ChannelID string
}

func NewNotifySendFailed(channelID string, err error) *ErrNotifySendFailed {
	return &ErrNotifySendFailed{
		BaseError: NewBaseError(ErrorTypeGateway, "failed to post notification", err),
		ChannelID: channelID,
	}
}

// Config Errors

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	if err == nil {
		return false
	}
	if categorized, ok := err.(interface{ Category() ErrorType }); ok {
		return categorized.Category() == errType
	}
	// Check wrapped errors
	if wrapped, ok := err.(interface{ Unwrap() error }); ok {
		return IsErrorType(wrapped.Unwrap(), errType)
	}
	return false
}

// IsValidation reports whether the error is a caller-input validation
// failure that should be surfaced as a human-readable rejection.
func IsValidation(err error) bool {
	return IsErrorType(err, ErrorTypeValidation) || IsErrorType(err, ErrorTypeFaction)
}

// IsRetryable checks if an error is retryable on the next scheduled cycle
func IsRetryable(err error) bool {
	// Validation and faction errors are final
	if IsValidation(err) {
		return false
	}
	// Storage and gateway failures are transient
	return IsErrorType(err, ErrorTypeStorage) || IsErrorType(err, ErrorTypeGateway)
}
