package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Team errors
	CodeTeamNameEmpty Code = "TEAM_NAME_EMPTY"
	CodeTeamSlugTaken Code = "TEAM_SLUG_TAKEN"
	CodeTeamNotFound  Code = "TEAM_NOT_FOUND"

	// Member errors
	CodeMemberNameEmpty Code = "MEMBER_NAME_EMPTY"
	CodeMemberNameTaken Code = "MEMBER_NAME_TAKEN"
	CodeMemberNotFound  Code = "MEMBER_NOT_FOUND"
	CodeMemberNotInTeam Code = "MEMBER_NOT_IN_TEAM"

	// Session errors
	CodeSessionIDEmpty         Code = "SESSION_ID_EMPTY"
	CodeSessionEntryCount      Code = "SESSION_ENTRY_COUNT"
	CodeSessionDuplicateMember Code = "SESSION_DUPLICATE_MEMBER"
	CodeSessionInvalidChombo   Code = "SESSION_INVALID_CHOMBO"
	CodeSessionAlreadyExists   Code = "SESSION_ALREADY_EXISTS"
	CodeSessionNotFound        Code = "SESSION_NOT_FOUND"
	CodeSessionIncomplete      Code = "SESSION_INCOMPLETE"

	// Reporting errors
	CodeStandingsInvalidMonth Code = "STANDINGS_INVALID_MONTH"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeTeamNameEmpty,
		CodeMemberNameEmpty,
		CodeMemberNotInTeam,
		CodeSessionIDEmpty,
		CodeSessionEntryCount,
		CodeSessionDuplicateMember,
		CodeSessionInvalidChombo,
		CodeStandingsInvalidMonth:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeSessionIncomplete:
		return codes.FailedPrecondition

	// NotFound - resource doesn't exist
	case CodeNotFound,
		CodeTeamNotFound,
		CodeMemberNotFound,
		CodeSessionNotFound:
		return codes.NotFound

	// AlreadyExists - unique resource constraint
	case CodeTeamSlugTaken,
		CodeMemberNameTaken,
		CodeSessionAlreadyExists:
		return codes.AlreadyExists

	default:
		return codes.Internal
	}
}
