// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import "errors"

// Failure classes. Every error surfaced by the pipeline or the feed monitor
// wraps exactly one of these, so callers can classify with errors.Is.
var (
	// ErrConfiguration indicates missing or invalid settings. Raised at
	// construction time, never per-document.
	ErrConfiguration = errors.New("configuration error")

	// ErrFetch indicates a network fetch failure or timeout. Retryable.
	ErrFetch = errors.New("fetch error")

	// ErrConversion indicates the raw content could not be converted to
	// markdown. Fatal for that document.
	ErrConversion = errors.New("conversion error")

	// ErrProvider indicates an AI provider call failed. Fatal for
	// embeddings, degraded for classification and summarization.
	ErrProvider = errors.New("provider error")

	// ErrStorage indicates a store write or read failed. Fatal, and any
	// in-flight batch is rolled back.
	ErrStorage = errors.New("storage error")

	// ErrValidation indicates a malformed RawDocument or Subscription.
	// The input is rejected before any stage runs.
	ErrValidation = errors.New("validation error")
)

// Field-level validation errors
var (
	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptySourceURL indicates the SourceURL field is empty.
	ErrEmptySourceURL = errors.New("source URL cannot be empty")

	// ErrInvalidSourceURL indicates the SourceURL is not an absolute http(s) URL.
	ErrInvalidSourceURL = errors.New("source URL must be an absolute http or https URL")

	// ErrInvalidContentType indicates an invalid ContentType value.
	ErrInvalidContentType = errors.New("invalid content type")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")

	// ErrEmptyFeedURL indicates the subscription FeedURL field is empty.
	ErrEmptyFeedURL = errors.New("feed URL cannot be empty")

	// ErrEmptySubscriptionName indicates the subscription Name field is empty.
	ErrEmptySubscriptionName = errors.New("subscription name cannot be empty")
)
