package pipeline

import (
	"errors"

	"github.com/normanking/empath/internal/classify"
	"github.com/normanking/empath/internal/dispatch"
)

// Failure taxonomy. Analysis and classification failures recover locally,
// persistence failures are logged and swallowed, template failures produce
// the fallback envelope.
var (
	ErrAnalysis       = errors.New("analysis failure")
	ErrClassification = classify.ErrClassification
	ErrPersistence    = errors.New("persistence failure")
	ErrTemplate       = dispatch.ErrTemplateFailure
)
