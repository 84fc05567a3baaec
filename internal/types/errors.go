package types

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")

	// ErrNoRecommendations is returned when the completion service produced no usable answer.
	ErrNoRecommendations = errors.New("unable to get recommendations, please try again")
	// ErrUnparseableRecommendations is returned when the answer looked like JSON but was not.
	ErrUnparseableRecommendations = errors.New("unable to parse recommendations, please try again")

	ErrPlaceNotResolved    = errors.New("place could not be resolved")
	ErrCollectionNotLoaded = errors.New("collection is not loaded")
)
