package feeds

import "errors"

var (
	// ErrFeedRepositoryRequired is returned when a feed repository is not provided.
	ErrFeedRepositoryRequired = errors.New("feed repository required")

	// ErrProcessorRequired is returned when a document processor is not provided.
	ErrProcessorRequired = errors.New("document processor required")

	// ErrFeedSourceRequired is returned when a feed source is not provided.
	ErrFeedSourceRequired = errors.New("feed source required")
)
