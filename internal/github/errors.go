package github

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	gogithub "github.com/google/go-github/v57/github"

	apperrors "github.com/Kamar-Folarin/cpython-stats/internal/errors"
)

// GitHubError is a failed API call with its HTTP status
type GitHubError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *GitHubError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("GitHub API error (status %d): %s: %v", e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("GitHub API error (status %d): %s", e.StatusCode, e.Message)
}

func (e *GitHubError) Unwrap() error {
	return e.Err
}

// classify maps a go-github error onto the application error taxonomy.
// Context errors are returned untouched.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var rle *gogithub.RateLimitError
	var abuse *gogithub.AbuseRateLimitError
	if stderrors.As(err, &rle) || stderrors.As(err, &abuse) {
		return apperrors.NewTransientError(op+": rate limited", err)
	}

	var resp *gogithub.ErrorResponse
	if stderrors.As(err, &resp) && resp.Response != nil {
		ghErr := &GitHubError{StatusCode: resp.Response.StatusCode, Message: resp.Message, Err: err}
		switch {
		case resp.Response.StatusCode == http.StatusNotFound:
			return apperrors.NewNotFoundError(op, ghErr)
		case resp.Response.StatusCode >= http.StatusInternalServerError:
			return apperrors.NewTransientError(op, ghErr)
		default:
			return apperrors.NewFetchError(op, ghErr)
		}
	}

	return apperrors.NewTransientError(op, err)
}

// retryable reports whether a raw go-github error is worth another attempt
func retryable(err error) bool {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var rle *gogithub.RateLimitError
	var abuse *gogithub.AbuseRateLimitError
	if stderrors.As(err, &rle) || stderrors.As(err, &abuse) {
		return true
	}

	var resp *gogithub.ErrorResponse
	if stderrors.As(err, &resp) && resp.Response != nil {
		return resp.Response.StatusCode >= http.StatusInternalServerError
	}

	// transport level failure
	return true
}

func fetchError(number int, what string, err error) error {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperrors.NewFetchError(fmt.Sprintf("pull request #%d: failed to fetch %s", number, what), err)
}
