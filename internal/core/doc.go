// Package core provides the business logic for equipment dataset uploads.
//
// This package contains all domain logic independent of any transport. It
// can be used by web handlers, CLI tools, or tests without modification.
//
// # Pipeline
//
// An upload flows through four stages:
//
//  1. Intake: [ReadUpload] bounds the size, [ParseCSV] strips the BOM,
//     sanitizes UTF-8 and splits header from records into a [Dataset]
//  2. Validation: [Validate] checks required columns and numeric types and
//     returns a typed [Table]
//  3. Summary: [Summarize] computes avg/min/max/std per measurement column
//     and the Type distribution
//  4. History: [HistoryStore.Record] stores the summary and raw bytes,
//     evicting the user's oldest datasets beyond capacity
//
// [Service.Upload] runs all four under the [UploadLimiter].
//
// # Error Handling
//
// Validation failures are typed ([MissingColumnsError], [NonNumericColumnError])
// and match sentinels through errors.Is. [OffendingColumns] lists every column
// named by an error. Technical errors are mapped to user-facing messages with
// [MapError].
package core
