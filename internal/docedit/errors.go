package docedit

import "errors"

var (
	// ErrSectionNotFound is returned by UpdateSection when the target
	// section header does not exist.
	ErrSectionNotFound = errors.New("docedit: section not found")

	// ErrDuplicateContent is the dedicated non-error outcome for an append
	// whose first non-blank line already appears verbatim in the document.
	// Callers MUST check for this with errors.Is, not treat it as failure.
	ErrDuplicateContent = errors.New("docedit: duplicate content, not appended")

	// ErrTooLarge is returned by Validate when the document exceeds the
	// 10 MiB size ceiling.
	ErrTooLarge = errors.New("docedit: document exceeds 10MiB size limit")

	// ErrPathTraversal is returned when a document path escapes the
	// project root or contains a null byte.
	ErrPathTraversal = errors.New("docedit: path traversal or null byte rejected")

	// ErrUnbalancedFences is a structural markdown validation failure.
	ErrUnbalancedFences = errors.New("docedit: unbalanced code fences")

	// ErrUnclosedFrontmatter is a structural markdown validation failure.
	ErrUnclosedFrontmatter = errors.New("docedit: unclosed frontmatter")

	// ErrDuplicateHeader is a structural markdown validation failure.
	ErrDuplicateHeader = errors.New("docedit: duplicate header")
)
