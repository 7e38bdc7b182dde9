// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

// Package validation validates request structs with go-playground/validator.
//
// A single validator is built on first use. It reports fields by their JSON
// name and adds three tags:
//
//   - mediastatus: to_watch, scheduled or watched
//   - eventtype: movie, tv or unknown
//   - username: 3-32 of [A-Za-z0-9._-]
//
// Handlers validate after decoding and turn failures into a 400
// VALIDATION_ERROR:
//
//	var req media.SaveInput
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    rw.ValidationError(apiErr.Message, apiErr.Details)
//	    return
//	}
package validation
