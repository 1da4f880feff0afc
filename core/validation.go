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

import (
	"fmt"
	"net/url"
	"time"
)

// ValidateRawDocument validates a RawDocument before any pipeline stage runs.
//
// Validation rules:
//   - Content must not be empty
//   - SourceURL must be an absolute http(s) URL
//   - ContentType must be a known value
//   - CreatedAt must not be in the future
//
// NOT validated (populated by the pipeline):
//   - Title, Summary (may be empty)
//   - Tags, SourceMetadata (may be empty)
func ValidateRawDocument(doc *RawDocument) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrValidation)
	}

	if doc.Content == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyContent)
	}

	if err := validateURL(doc.SourceURL); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	if err := ValidateContentType(doc.ContentType); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	if !doc.CreatedAt.IsZero() && doc.CreatedAt.After(time.Now()) {
		return fmt.Errorf("%w: %w", ErrValidation, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateSubscription validates a Subscription before it is stored.
func ValidateSubscription(sub *Subscription) error {
	if sub == nil {
		return fmt.Errorf("%w: subscription is nil", ErrValidation)
	}

	if sub.FeedURL == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyFeedURL)
	}

	if err := validateURL(sub.FeedURL); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	if sub.Name == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptySubscriptionName)
	}

	return nil
}

// ValidateContentType validates that a ContentType has a known value.
func ValidateContentType(t ContentType) error {
	switch t {
	case ContentTypeHTML, ContentTypeMarkdown, ContentTypeText, ContentTypeFeedItem:
		return nil
	default:
		return fmt.Errorf("%w: value %d", ErrInvalidContentType, t)
	}
}

func validateURL(raw string) error {
	if raw == "" {
		return ErrEmptySourceURL
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidSourceURL, raw)
	}
	return nil
}
