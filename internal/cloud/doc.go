// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud talks to an OpenAI-compatible chat-completions endpoint.
//
// The default endpoint is DashScope compatible mode. Streaming responses are
// Server-Sent Events; every frame's delta content is delivered in order and
// the stream ends at the "[DONE]" sentinel or when the body closes.
//
// # Key Types
//
//   - Client: bearer-token HTTP client for one endpoint
//   - Request: model, messages and sampling parameters for one generation
//   - Stream: channel form of an in-flight generation, cancellable
//   - Handle: callback form returned by StreamFunc
//   - ConfigError, APIError, ParseError: the error kinds a caller can see
//
// # Usage
//
//	client := cloud.New(cloud.Config{APIKey: key})
//	stream := client.Stream(ctx, req)
//	for ev := range stream.Events() {
//	    switch ev.Kind {
//	    case cloud.EventChunk:
//	        fmt.Print(ev.Text)
//	    case cloud.EventError:
//	        return ev.Err
//	    }
//	}
//
// Cancelling a stream never produces an error event. There are no retries;
// a failed request is reported once and left to the user.
package cloud
