// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session coordinates one conversation with the streaming client.
//
// A Session is either Idle or Generating. Send appends and persists the
// user message, starts a stream and moves to Generating. The owner feeds
// each stream event back through Handle; a Done event commits the
// accumulated reply, an Error event drops it, and Stop cancels without
// committing anything. Events from a generation that is no longer current
// are ignored, so nothing leaks into the log after Stop.
//
// # Key Types
//
//   - Session: the state machine for one conversation
//   - Generation: an in-flight request and its event channel
//   - Result: what Handle did with an event
//
// # Usage
//
//	sess := session.New(session.Config{Conversation: conv, Client: client, Store: mgr, Settings: s})
//	gen, err := sess.Send(ctx, "Hello")
//	for ev := range gen.Events() {
//	    res := sess.Handle(gen, ev)
//	    if res.Done {
//	        break
//	    }
//	}
package session
