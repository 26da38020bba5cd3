// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source for testability.
//
// Code that needs the current time (session expiry checks, record
// creation timestamps, notification seen markers) takes a Clock instead
// of calling time.Now directly. Production code uses Real(); tests use
// Fake() and move time explicitly:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	client, _ := atproto.NewClient(atproto.ClientConfig{Clock: c, ...})
//	c.Advance(3 * time.Hour) // the access token is now past its exp claim
//
// The client never sleeps or schedules timers (there are no retries or
// background work), so only Now is part of the interface.
package clock
