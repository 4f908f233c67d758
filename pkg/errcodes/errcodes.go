package errcodes

import "git.appkode.ru/pub/go/failure"

const (
	InternalServerError failure.ErrorCode = "InternalServerError"
	TimeoutExceeded     failure.ErrorCode = "TimeoutExceeded"
	Forbidden           failure.ErrorCode = "Forbidden"
	ValidationError     failure.ErrorCode = "ValidationError"
	NotFound            failure.ErrorCode = "NotFound"

	// Address pipeline.
	InvalidAddress        failure.ErrorCode = "InvalidAddress"
	InvalidCoordinates    failure.ErrorCode = "InvalidCoordinates"
	AddressNotResolvable  failure.ErrorCode = "AddressNotResolvable"
	AddressNotFound       failure.ErrorCode = "AddressNotFound"
	InvalidAddressID      failure.ErrorCode = "InvalidAddressID"
	InvalidSuggestionTerm failure.ErrorCode = "InvalidSuggestionTerm"

	// Scores and reports.
	ScoreNotFound       failure.ErrorCode = "ScoreNotFound"
	ScoreNotReady       failure.ErrorCode = "ScoreNotReady"
	ReportNotFound      failure.ErrorCode = "ReportNotFound"
	InvalidReportID     failure.ErrorCode = "InvalidReportID"
	RecalcAlreadyQueued failure.ErrorCode = "RecalcAlreadyQueued"

	// Upstream providers.
	GeocoderUnavailable failure.ErrorCode = "GeocoderUnavailable"
	OverpassUnavailable failure.ErrorCode = "OverpassUnavailable"
	AirDataUnavailable  failure.ErrorCode = "AirDataUnavailable"
	TransitUnavailable  failure.ErrorCode = "TransitUnavailable"
	ProviderRateLimited failure.ErrorCode = "ProviderRateLimited"
)
