// Package client talks to a link server on behalf of the viewer.
//
// # Overview
//
// Client is the transport contract the viewer depends on: POST a manifest
// request, GET a direct-access link, and GET a file location. HTTPClient is
// the net/http implementation. InitDatabase opens the viewer's local
// history store.
//
// # Timeouts and retries
//
// Every request runs under its own deadline (Options.Timeout). Only
// idempotent GETs are retried, with exponential backoff, and only on
// transient failures (transport errors, 429 and 5xx). A manifest POST may
// count as a passcode attempt on the server, so it is never retried.
//
// # Error Handling
//
// HTTP statuses are mapped onto the sentinel errors of package common:
// 401 becomes *common.PasscodeError, 403 common.ErrLockedOut, 404
// common.ErrorNotFound, 410 common.ErrExpired and transient failures
// common.ErrNetwork. Match them with errors.Is / errors.As.
package client
